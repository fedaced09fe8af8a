package types

type ServiceMode string

// Package Service - package CRUD, lifecycle transitions and map projection
// Tracker Service - device location streams and the location reporting loop
const (
	PackageService ServiceMode = "package-service"
	TrackerService ServiceMode = "tracker-service"
)

func (m ServiceMode) String() string {
	return string(m)
}

// StoreDriver selects the package record store implementation.
type StoreDriver string

const (
	StorePostgres StoreDriver = "postgres"
	StoreMemory   StoreDriver = "memory"
)
