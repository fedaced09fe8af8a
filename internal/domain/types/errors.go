package types

import "errors"

var (
	ErrPackageNotFound   = errors.New("package not found")
	ErrForbidden         = errors.New("action not allowed for this user")
	ErrAlreadyTaken      = errors.New("package already taken")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("invalid package status")
	ErrInvalidPackage    = errors.New("invalid package")

	ErrResolutionFailed  = errors.New("coordinate could not be resolved")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrPermissionDenied  = errors.New("location permission denied")
	ErrDeviceUnavailable = errors.New("device location unavailable")

	ErrUnauthorized = errors.New("authorization required")
	ErrNotFound     = errors.New("requested item not found")
)
