package dto

import (
	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/pkg/validator"
)

const (
	TypeLocationUpdate  = "location_update"
	TypeLocationRequest = "location_request"
	TypeTracking        = "tracking"
	TypeError           = "error"
)

// LocationUpdate is a position sample sent by the device.
type LocationUpdate struct {
	MsgType   string   `json:"type" validate:"required,eq=location_update"`
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty" validate:"omitempty,gte=0"`
}

func (r *LocationUpdate) Validate(v *validator.Validator) {
	v.Struct(r)
}

func (r *LocationUpdate) Coordinate() models.Coordinate {
	return models.Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

// TrackingCommand switches GPS streaming on the device.
type TrackingCommand struct {
	MsgType       string  `json:"type"`
	Enabled       bool    `json:"enabled"`
	MinIntervalMs int64   `json:"min_interval_ms,omitempty"`
	MinDistanceM  float64 `json:"min_distance_m,omitempty"`
}

// LocationRequest asks the device for one fresh sample.
type LocationRequest struct {
	MsgType string `json:"type"`
}
