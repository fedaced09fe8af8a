package models

import "github.com/Temutjin2k/droply/internal/domain/types"

// Marker is one point of interest rendered on the map.
type Marker struct {
	ID             string                 `json:"id"`
	PackageID      int64                  `json:"package_id"`
	Coordinate     Coordinate             `json:"coordinate"`
	Category       types.MarkerCategory   `json:"category"`
	Color          string                 `json:"color"`
	Icon           string                 `json:"icon"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	Status         types.PackageStatus    `json:"status"`
	PickupAddress  string                 `json:"pickup_address,omitempty"`
	DropoffAddress string                 `json:"dropoff_address,omitempty"`
	Source         types.CoordinateSource `json:"source"`
}

// Route is a polyline from the current or pickup position to the dropoff.
type Route struct {
	PackageID int64        `json:"package_id"`
	Points    []Coordinate `json:"points"`
	Color     string       `json:"color"`
}

// MapData is the full result of one projection pass.
type MapData struct {
	Markers []Marker `json:"markers"`
	Routes  []Route  `json:"routes"`
}

// ResolvedCoordinate is a coordinate tagged with its source.
type ResolvedCoordinate struct {
	Coordinate
	Source types.CoordinateSource `json:"source"`
}
