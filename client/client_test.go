package client

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"ProofFetch/internal/cidutil"
	"ProofFetch/internal/engine"
)

// fakeBackend records uploads and serves canned replies.
type fakeBackend struct {
	images   map[string][]byte
	inputs   [][]byte
	sessions []CreateSessionRequest
	status   StatusResponse
	receipts map[string][]byte
}

func newFakeBackend(t *testing.T) (*fakeBackend, *Client) {
	t.Helper()

	fb := &fakeBackend{
		images:   make(map[string][]byte),
		receipts: make(map[string][]byte),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /images/{id}", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fb.images[r.PathValue("id")] = body
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /inputs", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fb.inputs = append(fb.inputs, body)
		json.NewEncoder(w).Encode(map[string]string{"uuid": "input-1"})
	})
	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"bad json"}`, http.StatusBadRequest)
			return
		}
		fb.sessions = append(fb.sessions, req)
		json.NewEncoder(w).Encode(map[string]string{"uuid": "session-1"})
	})
	mux.HandleFunc("GET /sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(fb.status)
	})
	mux.HandleFunc("GET /receipts/{cid}", func(w http.ResponseWriter, r *http.Request) {
		data, ok := fb.receipts[r.PathValue("cid")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"receipt not found"}`))
			return
		}
		w.Write(data)
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return fb, New(ts.URL)
}

// serveReceipt stores artifact compressed under cid.
func (fb *fakeBackend) serveReceipt(t *testing.T, cid string, artifact []byte) {
	t.Helper()

	compressed, err := engine.CompressArtifact(artifact)
	if err != nil {
		t.Fatalf("CompressArtifact: %v", err)
	}

	fb.receipts[cid] = compressed
}

func TestNewNormalizesAddress(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"127.0.0.1:8090", "http://127.0.0.1:8090"},
		{"http://backend:8090/", "http://backend:8090"},
		{"https://backend", "https://backend"},
	}

	for _, tt := range tests {
		if got := New(tt.addr).BaseURL(); got != tt.want {
			t.Errorf("New(%q).BaseURL() = %q, want %q", tt.addr, got, tt.want)
		}
	}

	if got := New("127.0.0.1:8443", WithHTTP3()).BaseURL(); got != "https://127.0.0.1:8443" {
		t.Errorf("http3 base url = %q", got)
	}
}

func TestUploadsAndSession(t *testing.T) {
	fb, c := newFakeBackend(t)
	ctx := context.Background()

	if err := c.UploadImage(ctx, "abcd", []byte("image")); err != nil {
		t.Fatalf("UploadImage: %v", err)
	}

	if !bytes.Equal(fb.images["abcd"], []byte("image")) {
		t.Errorf("image = %q", fb.images["abcd"])
	}

	inputID, err := c.UploadInput(ctx, []byte("input"))
	if err != nil || inputID != "input-1" {
		t.Fatalf("UploadInput = %q, %v", inputID, err)
	}

	sessionID, err := c.CreateSession(ctx, "abcd", inputID, nil)
	if err != nil || sessionID != "session-1" {
		t.Fatalf("CreateSession = %q, %v", sessionID, err)
	}

	got := fb.sessions[0]
	if got.Img != "abcd" || got.Input != "input-1" || got.Assumptions == nil || len(got.Assumptions) != 0 {
		t.Errorf("session request = %+v, want empty non-nil assumptions", got)
	}
}

func TestSessionStatus(t *testing.T) {
	fb, c := newFakeBackend(t)

	fb.status = StatusResponse{Status: StatusRunning, State: "executing"}
	state, err := c.SessionStatus(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("SessionStatus: %v", err)
	}

	if r, ok := state.(Running); !ok || r.State != "executing" {
		t.Errorf("state = %#v", state)
	}

	fb.status = StatusResponse{Status: "PAUSED"}
	if _, err := c.SessionStatus(context.Background(), "session-1"); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestDownload(t *testing.T) {
	fb, c := newFakeBackend(t)

	artifact := []byte("receipt artifact")
	id := cidutil.String(artifact)
	fb.serveReceipt(t, id, artifact)

	got, err := c.Download(context.Background(), "/receipts/"+id)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	if !bytes.Equal(got, artifact) {
		t.Errorf("artifact = %q", got)
	}
}

func TestDownloadContentMismatch(t *testing.T) {
	fb, c := newFakeBackend(t)

	id := cidutil.String([]byte("expected"))
	fb.serveReceipt(t, id, []byte("substituted"))

	if _, err := c.Download(context.Background(), "/receipts/"+id); !errors.Is(err, ErrReceiptMismatch) {
		t.Errorf("expected ErrReceiptMismatch, got %v", err)
	}
}

func TestDownloadBadReceiptURL(t *testing.T) {
	_, c := newFakeBackend(t)

	for _, ref := range []string{"", "/receipts/not-a-cid"} {
		if _, err := c.Download(context.Background(), ref); !errors.Is(err, ErrBadReply) {
			t.Errorf("Download(%q): expected ErrBadReply, got %v", ref, err)
		}
	}
}

func TestStatusErrorCarriesMessage(t *testing.T) {
	_, c := newFakeBackend(t)

	id := cidutil.String([]byte("missing"))
	_, err := c.Download(context.Background(), "/receipts/"+id)

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}

	if se.Code != http.StatusNotFound || se.Message != "receipt not found" {
		t.Errorf("status error = %+v", se)
	}
}

func TestProverKey(t *testing.T) {
	key, err := engine.SealKeyFromSeed(make([]byte, 32))
	if err != nil {
		t.Fatalf("SealKeyFromSeed: %v", err)
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"publicKey": key.PublicKeyHex()})
	}))
	defer ts.Close()

	got, err := New(ts.URL).ProverKey(context.Background())
	if err != nil {
		t.Fatalf("ProverKey: %v", err)
	}

	if hex.EncodeToString(got) != key.PublicKeyHex() {
		t.Errorf("key = %x", got)
	}
}
