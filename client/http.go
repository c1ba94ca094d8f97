package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	Img         string   `json:"img"`
	Input       string   `json:"input"`
	Assumptions []string `json:"assumptions"`
}

// StatusResponse is the body of GET /sessions/{id}.
type StatusResponse struct {
	Status     string `json:"status"`
	State      string `json:"state,omitempty"`
	ReceiptURL string `json:"receipt_url,omitempty"`
	ErrorMsg   string `json:"error_msg,omitempty"`
}

// uuidResponse is the reply of the upload and session endpoints.
type uuidResponse struct {
	UUID string `json:"uuid"`
}

// proverResponse is the reply of GET /prover.
type proverResponse struct {
	PublicKey string `json:"publicKey"`
}

// StatusError is returned when the backend replies with an unexpected status.
type StatusError struct {
	Method  string // Method is the request method
	URL     string // URL is the request URL
	Code    int    // Code is the HTTP status code
	Message string // Message is the backend error message, if any
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Code, e.Message)
	}

	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Code)
}

// postJSON sends body as JSON and decodes the JSON reply into result.
func (c *Client) postJSON(ctx context.Context, url string, body any, result any) error {
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body:\n%w", err)
	}

	return c.do(ctx, http.MethodPost, url, "application/json", bytes.NewReader(jsonBytes), result)
}

// do performs a request and decodes a JSON reply into result when non-nil.
func (c *Client) do(ctx context.Context, method, url, contentType string, body io.Reader, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build request:\n%w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s:\n%w", method, url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(method, url, resp)
	}

	if result == nil {
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReplySize)).Decode(result); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrBadReply, method, url, err)
	}

	return nil
}

// getRaw performs a GET and returns at most limit bytes of the body.
func (c *Client) getRaw(ctx context.Context, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request:\n%w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s:\n%w", url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(http.MethodGet, url, resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s:\n%w", url, err)
	}

	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBadReply, url, limit)
	}

	return data, nil
}

// statusError builds a StatusError, reading the backend's error message if present.
func statusError(method, url string, resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &body) != nil {
		body.Error = strings.TrimSpace(string(raw))
	}

	return &StatusError{Method: method, URL: url, Code: resp.StatusCode, Message: body.Error}
}
