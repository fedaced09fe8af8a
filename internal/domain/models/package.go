package models

import (
	"time"

	"github.com/Temutjin2k/droply/internal/domain/types"
)

// Package is a single delivery request.
type Package struct {
	ID          int64   `json:"id"`
	SenderID    string  `json:"sender_id"`
	DelivererID *string `json:"deliverer_id"`

	Title          string   `json:"title"`
	Description    string   `json:"description"`
	RecipientPhone string   `json:"recipient_phone,omitempty"`
	Weight         *float64 `json:"weight"`
	Price          *float64 `json:"price"`

	PickupAddress    string   `json:"pickup_address"`
	PickupLatitude   *float64 `json:"pickup_latitude"`
	PickupLongitude  *float64 `json:"pickup_longitude"`
	DropoffAddress   string   `json:"dropoff_address"`
	DropoffLatitude  *float64 `json:"dropoff_latitude"`
	DropoffLongitude *float64 `json:"dropoff_longitude"`

	// Live position, trusted only while the package is in transit.
	CurrentLatitude  *float64 `json:"current_latitude"`
	CurrentLongitude *float64 `json:"current_longitude"`

	Status    types.PackageStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// StoredEndpoint returns the stored coordinate for an endpoint, if usable.
func (p *Package) StoredEndpoint(e types.Endpoint) (Coordinate, bool) {
	switch e {
	case types.EndpointPickup:
		return CoordinateFrom(p.PickupLatitude, p.PickupLongitude)
	case types.EndpointDropoff:
		return CoordinateFrom(p.DropoffLatitude, p.DropoffLongitude)
	default:
		return Coordinate{}, false
	}
}

// Address returns the free-text address of an endpoint.
func (p *Package) Address(e types.Endpoint) string {
	if e == types.EndpointDropoff {
		return p.DropoffAddress
	}
	return p.PickupAddress
}

// LivePosition returns the reported driver position. It is only trusted in transit.
func (p *Package) LivePosition() (Coordinate, bool) {
	if p.Status != types.StatusInTransit {
		return Coordinate{}, false
	}
	return CoordinateFrom(p.CurrentLatitude, p.CurrentLongitude)
}

func (p *Package) IsSender(userID string) bool {
	return userID != "" && p.SenderID == userID
}

func (p *Package) IsDeliverer(userID string) bool {
	return userID != "" && p.DelivererID != nil && *p.DelivererID == userID
}

// PackageFilter selects packages. Zero-valued fields do not constrain.
type PackageFilter struct {
	ID              *int64
	Statuses        []types.PackageStatus
	SenderID        *string
	DelivererID     *string
	DelivererIsNull bool
	// ParticipantID matches the sender or the deliverer.
	ParticipantID *string
}

// Matches evaluates the filter against p.
func (f PackageFilter) Matches(p *Package) bool {
	if f.ID != nil && p.ID != *f.ID {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if p.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.SenderID != nil && p.SenderID != *f.SenderID {
		return false
	}
	if f.DelivererID != nil && (p.DelivererID == nil || *p.DelivererID != *f.DelivererID) {
		return false
	}
	if f.DelivererIsNull && p.DelivererID != nil {
		return false
	}
	if f.ParticipantID != nil && !p.IsSender(*f.ParticipantID) && !p.IsDeliverer(*f.ParticipantID) {
		return false
	}
	return true
}

// PackagePatch is a partial update. Nil fields are left unchanged.
type PackagePatch struct {
	Status         *types.PackageStatus
	DelivererID    *string
	ClearDeliverer bool
	Current        *Coordinate
	ClearCurrent   bool
}

// Apply mutates p according to the patch.
func (pt PackagePatch) Apply(p *Package, now time.Time) {
	if pt.Status != nil {
		p.Status = *pt.Status
	}
	if pt.DelivererID != nil {
		id := *pt.DelivererID
		p.DelivererID = &id
	}
	if pt.ClearDeliverer {
		p.DelivererID = nil
	}
	if pt.Current != nil {
		lat, lng := pt.Current.Latitude, pt.Current.Longitude
		p.CurrentLatitude, p.CurrentLongitude = &lat, &lng
	}
	if pt.ClearCurrent {
		p.CurrentLatitude, p.CurrentLongitude = nil, nil
	}
	p.UpdatedAt = now
}

// OrderBy is the sort order for Find.
type OrderBy struct {
	Field string
	Desc  bool
}

var OrderByCreatedDesc = &OrderBy{Field: "created_at", Desc: true}
