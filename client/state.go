package client

import (
	"errors"
	"fmt"
)

// Backend status strings.
const (
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusTimedOut  = "TIMED_OUT"
	StatusAborted   = "ABORTED"
)

// ErrUnknownStatus is returned for status strings outside the session state machine.
var ErrUnknownStatus = errors.New("unknown session status")

// SessionState is one observation of a proving session.
// It is one of Running, Succeeded or Failed.
type SessionState interface {
	// Status returns the backend status string.
	Status() string

	// Terminal reports whether the session can no longer change.
	Terminal() bool

	sessionState()
}

// Running is a session still executing.
type Running struct {
	State string // State is the backend progress hint, possibly empty
}

// Succeeded is a session that produced a receipt.
type Succeeded struct {
	ReceiptURL string // ReceiptURL locates the receipt; empty is a protocol violation
}

// Failed is a session that ended without a receipt.
type Failed struct {
	Code    string // Code is FAILED, TIMED_OUT or ABORTED
	Message string // Message is the backend error message
}

func (Running) Status() string   { return StatusRunning }
func (Succeeded) Status() string { return StatusSucceeded }
func (f Failed) Status() string  { return f.Code }

func (Running) Terminal() bool   { return false }
func (Succeeded) Terminal() bool { return true }
func (Failed) Terminal() bool    { return true }

func (Running) sessionState()   {}
func (Succeeded) sessionState() {}
func (Failed) sessionState()    {}

// ParseStatus converts a status response into a SessionState.
func ParseStatus(resp StatusResponse) (SessionState, error) {
	switch resp.Status {
	case StatusRunning:
		return Running{State: resp.State}, nil

	case StatusSucceeded:
		return Succeeded{ReceiptURL: resp.ReceiptURL}, nil

	case StatusFailed, StatusTimedOut, StatusAborted:
		return Failed{Code: resp.Status, Message: resp.ErrorMsg}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, resp.Status)
	}
}
