package lifecycle

import (
	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/domain/types"
)

// Actor is who may perform a transition.
type Actor int

const (
	// ActorAnyone is any authenticated user, the sender included.
	ActorAnyone Actor = iota
	ActorSender
	ActorDeliverer
)

// Transition is one edge of the package state machine.
type Transition struct {
	From  types.PackageStatus
	To    types.PackageStatus
	Actor Actor
}

// transitions is the complete table. picked_up has no inbound edge and
// delivered/cancelled have no outbound one.
var transitions = []Transition{
	{From: types.StatusPending, To: types.StatusAssigned, Actor: ActorAnyone},
	{From: types.StatusPending, To: types.StatusCancelled, Actor: ActorSender},
	{From: types.StatusAssigned, To: types.StatusInTransit, Actor: ActorDeliverer},
	{From: types.StatusAssigned, To: types.StatusCancelled, Actor: ActorSender},
	{From: types.StatusInTransit, To: types.StatusDelivered, Actor: ActorDeliverer},
}

// Lookup returns the transition from -> to, if the table has one.
func Lookup(from, to types.PackageStatus) (Transition, bool) {
	for _, t := range transitions {
		if t.From == from && t.To == to {
			return t, true
		}
	}
	return Transition{}, false
}

// Authorize checks that actorID may move pkg into status to.
func Authorize(pkg *models.Package, actorID string, to types.PackageStatus) (Transition, error) {
	if actorID == "" {
		return Transition{}, types.ErrUnauthorized
	}

	t, ok := Lookup(pkg.Status, to)
	if !ok {
		return Transition{}, types.ErrInvalidTransition
	}

	switch t.Actor {
	case ActorSender:
		if !pkg.IsSender(actorID) {
			return Transition{}, types.ErrForbidden
		}
	case ActorDeliverer:
		if !pkg.IsDeliverer(actorID) {
			return Transition{}, types.ErrForbidden
		}
	case ActorAnyone:
		if pkg.DelivererID != nil {
			return Transition{}, types.ErrAlreadyTaken
		}
	}

	return t, nil
}

// Allowed lists the statuses actorID could move pkg into right now.
func Allowed(pkg *models.Package, actorID string) []types.PackageStatus {
	out := make([]types.PackageStatus, 0, 2)
	for _, t := range transitions {
		if t.From != pkg.Status {
			continue
		}
		if _, err := Authorize(pkg, actorID, t.To); err == nil {
			out = append(out, t.To)
		}
	}
	return out
}

// Guard is the compare-and-set filter for applying t to pkg. It pins the
// current status so a concurrent transition makes the update a no-op.
func (t Transition) Guard(pkg *models.Package, actorID string) models.PackageFilter {
	id := pkg.ID
	f := models.PackageFilter{
		ID:       &id,
		Statuses: []types.PackageStatus{t.From},
	}

	switch t.Actor {
	case ActorAnyone:
		f.DelivererIsNull = true
	case ActorSender:
		f.SenderID = &actorID
	case ActorDeliverer:
		f.DelivererID = &actorID
	}

	return f
}

// Patch is the update written when t succeeds.
func (t Transition) Patch(actorID string) models.PackagePatch {
	to := t.To
	p := models.PackagePatch{Status: &to}

	switch to {
	case types.StatusAssigned:
		p.DelivererID = &actorID
	case types.StatusCancelled:
		p.ClearDeliverer = true
		p.ClearCurrent = true
	case types.StatusDelivered:
		p.ClearCurrent = true
	}

	return p
}
