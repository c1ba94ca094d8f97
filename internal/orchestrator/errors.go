package orchestrator

import "errors"

// Kind is a stable category for programmatic error handling.
// Branch on Kind, not on Error() strings.
type Kind string

const (
	// KindTransport covers backend calls that did not complete: network
	// errors and unexpected HTTP statuses.
	KindTransport Kind = "Transport"

	// KindProtocol covers replies that break the backend protocol, such as
	// a SUCCEEDED session without a receipt URL or an unknown status.
	KindProtocol Kind = "Protocol"

	// KindSessionFailed is a session that ended FAILED, TIMED_OUT or ABORTED.
	KindSessionFailed Kind = "SessionFailed"

	// KindVerification covers receipts that do not verify and envelopes
	// whose commitment does not match the requested URL.
	KindVerification Kind = "Verification"

	// KindTimeout is a session that did not finish within the poll bounds.
	KindTimeout Kind = "Timeout"

	// KindCanceled is a run stopped by its caller. The backend session keeps
	// running.
	KindCanceled Kind = "Canceled"
)

var (
	// ErrMissingReceipt is returned for a SUCCEEDED session without a receipt URL.
	ErrMissingReceipt = errors.New("session succeeded without a receipt url")

	// ErrCommitmentMismatch is returned when the attested commitment is not
	// the commitment of the requested URL.
	ErrCommitmentMismatch = errors.New("envelope commitment does not match the requested url")

	// ErrPollLimit is returned when the poll loop exhausts its bounds.
	ErrPollLimit = errors.New("session still running at poll limit")
)

// Error is the orchestrator's structured error.
type Error struct {
	Kind    Kind   // Kind is the failure category
	Op      string // Op is the pipeline step, e.g. "upload image"
	Session string // Session is the session id, empty before creation
	Err     error  // Err is the cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := e.Op
	if e.Session != "" {
		msg += " (session " + e.Session + ")"
	}

	if e.Err != nil {
		msg += ":\n" + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	return e.Kind == kind
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}

	return e.Kind
}
