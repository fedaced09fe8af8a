package types

// PackageEvent is the audit event type written on every lifecycle change.
type PackageEvent string

func (e PackageEvent) String() string {
	return string(e)
}

const (
	EventPackageCreated   PackageEvent = "PACKAGE_CREATED"
	EventPackageAccepted  PackageEvent = "PACKAGE_ACCEPTED"
	EventPackageStarted   PackageEvent = "PACKAGE_STARTED"
	EventPackageDelivered PackageEvent = "PACKAGE_DELIVERED"
	EventPackageCancelled PackageEvent = "PACKAGE_CANCELLED"
)

// EventFor returns the audit event for a transition into status to.
func EventFor(to PackageStatus) PackageEvent {
	switch to {
	case StatusAssigned:
		return EventPackageAccepted
	case StatusInTransit:
		return EventPackageStarted
	case StatusDelivered:
		return EventPackageDelivered
	case StatusCancelled:
		return EventPackageCancelled
	default:
		return EventPackageCreated
	}
}
