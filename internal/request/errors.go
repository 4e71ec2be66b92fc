package request

import "errors"

// Sentinel errors for the request package.
var (
	// ErrRequestNotFound indicates the request id does not exist.
	ErrRequestNotFound = errors.New("request: not found")

	// ErrInvalidTransition indicates a lifecycle operation was attempted
	// from the wrong state. The request is left unchanged. Reported to
	// callers as a conflict.
	ErrInvalidTransition = errors.New("request: invalid transition")

	// ErrCrewMemberRequired indicates assign/accept was called without
	// a crew member id.
	ErrCrewMemberRequired = errors.New("request: crew member required")

	// ErrNegativeTiming indicates completion produced a negative
	// response or completion time, meaning a clock or data-entry fault.
	// The transition itself still succeeds; this error is reported for
	// logging and the fault is flagged in the history record.
	ErrNegativeTiming = errors.New("request: negative timing metric")
)
