package directory

import "errors"

// Sentinel errors for the directory package.
var (
	// ErrLocationNotFound indicates the requested location does not exist.
	ErrLocationNotFound = errors.New("directory: location not found")

	// ErrGuestNotFound indicates no matching guest exists.
	ErrGuestNotFound = errors.New("directory: guest not found")

	// ErrCrewMemberNotFound indicates the requested crew member does not exist.
	ErrCrewMemberNotFound = errors.New("directory: crew member not found")
)
