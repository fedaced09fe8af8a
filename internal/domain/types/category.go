package types

// MarkerCategory classifies a map marker relative to the viewer.
type MarkerCategory string

const (
	CategoryMyDelivery  MarkerCategory = "my_delivery"
	CategoryAvailable   MarkerCategory = "available"
	CategoryMyPackage   MarkerCategory = "my_package"
	CategoryOther       MarkerCategory = "other"
	CategoryDestination MarkerCategory = "destination"
)

func (c MarkerCategory) String() string {
	return string(c)
}

// CoordinateSource tells where a resolved coordinate came from.
type CoordinateSource string

const (
	SourceStored    CoordinateSource = "stored"
	SourceGeocoded  CoordinateSource = "geocoded"
	SourceFallback  CoordinateSource = "fallback"
	SourceLive      CoordinateSource = "live"
	SourceSimulated CoordinateSource = "simulated"
	SourcePickup    CoordinateSource = "pickup"
)

// Endpoint is one end of a delivery.
type Endpoint string

const (
	EndpointPickup  Endpoint = "pickup"
	EndpointDropoff Endpoint = "dropoff"
)

// ResolveScope selects the fallback policy used when an endpoint cannot be resolved.
type ResolveScope int

const (
	// ScopeListing substitutes the single system-wide fallback point.
	ScopeListing ResolveScope = iota
	// ScopeDetail substitutes per-endpoint defaults.
	ScopeDetail
)
