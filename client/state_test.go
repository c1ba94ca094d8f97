package client

import (
	"errors"
	"testing"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name     string
		resp     StatusResponse
		want     SessionState
		terminal bool
	}{
		{"running", StatusResponse{Status: "RUNNING", State: "queued"}, Running{State: "queued"}, false},
		{"succeeded", StatusResponse{Status: "SUCCEEDED", ReceiptURL: "/receipts/x"}, Succeeded{ReceiptURL: "/receipts/x"}, true},
		{"succeeded without url", StatusResponse{Status: "SUCCEEDED"}, Succeeded{}, true},
		{"failed", StatusResponse{Status: "FAILED", ErrorMsg: "boom"}, Failed{Code: "FAILED", Message: "boom"}, true},
		{"timed out", StatusResponse{Status: "TIMED_OUT"}, Failed{Code: "TIMED_OUT"}, true},
		{"aborted", StatusResponse{Status: "ABORTED"}, Failed{Code: "ABORTED"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatus(tt.resp)
			if err != nil {
				t.Fatalf("ParseStatus: %v", err)
			}

			if got != tt.want {
				t.Errorf("state = %#v, want %#v", got, tt.want)
			}

			if got.Terminal() != tt.terminal {
				t.Errorf("terminal = %v, want %v", got.Terminal(), tt.terminal)
			}

			if got.Status() != tt.resp.Status {
				t.Errorf("status = %s, want %s", got.Status(), tt.resp.Status)
			}
		})
	}
}

func TestParseStatusUnknown(t *testing.T) {
	for _, status := range []string{"", "running", "PENDING"} {
		if _, err := ParseStatus(StatusResponse{Status: status}); !errors.Is(err, ErrUnknownStatus) {
			t.Errorf("ParseStatus(%q): expected ErrUnknownStatus, got %v", status, err)
		}
	}
}
