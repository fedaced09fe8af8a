package models

import (
	"time"

	"github.com/Temutjin2k/droply/internal/domain/types"
)

// TrackingView is the detail-screen projection of a single package.
type TrackingView struct {
	Pickup  ResolvedCoordinate  `json:"pickup"`
	Dropoff ResolvedCoordinate  `json:"dropoff"`
	Driver  *ResolvedCoordinate `json:"driver,omitempty"`
	// Route runs pickup, driver (if any), dropoff.
	Route               []Coordinate `json:"route"`
	DistanceRemainingKm float64      `json:"distance_remaining_km"`
	EstimatedArrival    *time.Time   `json:"estimated_arrival,omitempty"`
}

// PackageDetails pairs a package with its tracking view and the
// statuses the viewer may move it into.
type PackageDetails struct {
	Package  *Package              `json:"package"`
	Tracking TrackingView          `json:"tracking"`
	Actions  []types.PackageStatus `json:"actions"`
}

// Dashboard is one of the per-user package lists.
type Dashboard struct {
	Packages    []Package `json:"packages"`
	ActiveCount int       `json:"active_count"`
}
