package storage

import "time"

// Session statuses as reported on the backend API.
const (
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
)

// Session is the persisted record of one proving session.
type Session struct {
	ID         string    `json:"id"`                   // ID is the opaque session id
	ImageID    string    `json:"imageId"`              // ImageID is the hex program identity
	InputID    string    `json:"inputId"`              // InputID is the input content id
	Status     string    `json:"status"`               // Status is RUNNING, SUCCEEDED or FAILED
	State      string    `json:"state,omitempty"`      // State is a free-form progress hint
	ReceiptCID string    `json:"receiptCid,omitempty"` // ReceiptCID is set once SUCCEEDED
	ErrorMsg   string    `json:"errorMsg,omitempty"`   // ErrorMsg is set once FAILED
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Terminal reports whether the session can no longer change.
func (s *Session) Terminal() bool {
	return s.Status == StatusSucceeded || s.Status == StatusFailed
}
