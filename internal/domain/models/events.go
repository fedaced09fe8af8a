package models

import (
	"encoding/json"
	"time"

	"github.com/Temutjin2k/droply/internal/domain/types"
)

// PackageStatusChanged is published on the change feed after every transition.
type PackageStatusChanged struct {
	PackageID   int64               `json:"package_id"`
	OldStatus   types.PackageStatus `json:"old_status"`
	NewStatus   types.PackageStatus `json:"new_status"`
	SenderID    string              `json:"sender_id"`
	DelivererID string              `json:"deliverer_id,omitempty"`
	ActorID     string              `json:"actor_id"`
	Timestamp   time.Time           `json:"timestamp"`
}

// PackageEventRecord is a row of the package audit log.
type PackageEventRecord struct {
	PackageID int64
	EventType types.PackageEvent
	ActorID   string
	EventData json.RawMessage
}
