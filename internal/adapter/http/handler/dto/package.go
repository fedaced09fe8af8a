package dto

import (
	"strings"

	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/pkg/validator"
)

type CreatePackageRequest struct {
	Title          string   `json:"title" validate:"required,max=255"`
	Description    string   `json:"description" validate:"max=1000"`
	RecipientPhone string   `json:"recipient_phone"`
	Weight         *float64 `json:"weight" validate:"omitempty,gte=0"`
	Price          *float64 `json:"price" validate:"omitempty,gte=0"`

	PickupAddress    string   `json:"pickup_address" validate:"max=255"`
	PickupLatitude   *float64 `json:"pickup_latitude" validate:"omitempty,latitude"`
	PickupLongitude  *float64 `json:"pickup_longitude" validate:"omitempty,longitude"`
	DropoffAddress   string   `json:"dropoff_address" validate:"max=255"`
	DropoffLatitude  *float64 `json:"dropoff_latitude" validate:"omitempty,latitude"`
	DropoffLongitude *float64 `json:"dropoff_longitude" validate:"omitempty,longitude"`
}

func (r *CreatePackageRequest) Validate(v *validator.Validator) {
	v.Struct(r)

	// each endpoint needs an address or a full coordinate pair
	v.Check((r.PickupLatitude == nil) == (r.PickupLongitude == nil), "pickup_longitude", "must be provided together with pickup_latitude")
	v.Check((r.DropoffLatitude == nil) == (r.DropoffLongitude == nil), "dropoff_longitude", "must be provided together with dropoff_latitude")
	v.Check(strings.TrimSpace(r.PickupAddress) != "" || r.PickupLatitude != nil, "pickup_address", "must be provided when pickup coordinates are missing")
	v.Check(strings.TrimSpace(r.DropoffAddress) != "" || r.DropoffLatitude != nil, "dropoff_address", "must be provided when dropoff coordinates are missing")

	if phone := strings.TrimSpace(r.RecipientPhone); phone != "" {
		v.Check(validator.Matches(phone, validator.PhoneRX), "recipient_phone", "must be a valid phone number")
	}
}

func (r *CreatePackageRequest) ToModel() *models.Package {
	return &models.Package{
		Title:            strings.TrimSpace(r.Title),
		Description:      strings.TrimSpace(r.Description),
		RecipientPhone:   strings.TrimSpace(r.RecipientPhone),
		Weight:           r.Weight,
		Price:            r.Price,
		PickupAddress:    strings.TrimSpace(r.PickupAddress),
		PickupLatitude:   r.PickupLatitude,
		PickupLongitude:  r.PickupLongitude,
		DropoffAddress:   strings.TrimSpace(r.DropoffAddress),
		DropoffLatitude:  r.DropoffLatitude,
		DropoffLongitude: r.DropoffLongitude,
	}
}

// DashboardView selects one of the per-user package lists.
type DashboardView string

const (
	ViewSent       DashboardView = "sent"
	ViewDeliveries DashboardView = "deliveries"
)

func (d DashboardView) Validate(v *validator.Validator) {
	v.Check(validator.PermittedValue(d, ViewSent, ViewDeliveries), "view", "must be one of sent, deliveries")
}
