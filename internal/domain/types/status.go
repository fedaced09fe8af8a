package types

// PackageStatus is the lifecycle state of a package.
type PackageStatus string

const (
	StatusPending   PackageStatus = "pending"
	StatusAssigned  PackageStatus = "assigned"
	StatusInTransit PackageStatus = "in_transit"
	StatusPickedUp  PackageStatus = "picked_up"
	StatusDelivered PackageStatus = "delivered"
	StatusCancelled PackageStatus = "cancelled"
)

func (s PackageStatus) String() string {
	return string(s)
}

// IsValid reports whether s is one of the enumerated statuses.
func (s PackageStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInTransit, StatusPickedUp, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no transition leaves s.
func (s PackageStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Color is the badge color shown next to a status.
func (s PackageStatus) Color() string {
	switch s {
	case StatusPending:
		return "#FFA000"
	case StatusAssigned:
		return "#7B1FA2"
	case StatusInTransit:
		return "#2196F3"
	case StatusPickedUp:
		return "#00897B"
	case StatusDelivered:
		return "#4CAF50"
	case StatusCancelled:
		return "#F44336"
	default:
		return "#757575"
	}
}

var (
	// MapStatuses are the statuses rendered on the shared map.
	MapStatuses = []PackageStatus{StatusPending, StatusAssigned, StatusInTransit, StatusPickedUp}

	// TrackedStatuses are the statuses listed on the tracking screen.
	TrackedStatuses = []PackageStatus{StatusPending, StatusAssigned, StatusInTransit}

	// ActiveStatuses count towards the dashboard's active counter.
	ActiveStatuses = []PackageStatus{StatusPending, StatusAssigned, StatusInTransit}
)
