// Package client talks to a proving backend over HTTP or HTTP/3.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"

	"ProofFetch/internal/cidutil"
	"ProofFetch/internal/engine"
)

const (
	// defaultTimeout bounds a single request to the backend.
	defaultTimeout = 60 * time.Second

	// maxReceiptSize bounds a downloaded compressed receipt.
	maxReceiptSize = 64 << 20 // 64 MB

	// maxReplySize bounds JSON replies.
	maxReplySize = 1 << 20 // 1 MB
)

var (
	// ErrReceiptMismatch is returned when a downloaded receipt does not hash
	// to the content id it was served under.
	ErrReceiptMismatch = errors.New("receipt does not match its content id")

	// ErrBadReply is returned for replies that do not follow the backend protocol.
	ErrBadReply = errors.New("malformed backend reply")
)

// Client connects to a proving backend.
type Client struct {
	baseURL string       // baseURL is the backend root, e.g. "http://127.0.0.1:8090"
	http    *http.Client // http performs requests
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithHTTP3 talks to the backend over HTTP/3. The backend certificate is
// self-signed, so it is not verified: receipts are authenticated by their seal.
func WithHTTP3() Option {
	return func(c *Client) {
		c.baseURL = strings.Replace(c.baseURL, "http://", "https://", 1)
		c.http = &http.Client{
			Timeout: defaultTimeout,
			Transport: &http3.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: true,
					NextProtos:         []string{http3.NextProtoH3},
				},
				QUICConfig: &quic.Config{
					MaxIdleTimeout:  60 * time.Second,
					KeepAlivePeriod: 15 * time.Second,
				},
			},
		}
	}
}

// New creates a client for the backend at addr ("host:port" or a URL).
func New(addr string, opts ...Option) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}

	c := &Client{
		baseURL: base,
		http:    &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// UploadImage uploads a program image under its identity.
// Uploading an image the backend already has is a no-op.
func (c *Client) UploadImage(ctx context.Context, imageID string, image []byte) error {
	u := c.baseURL + "/images/" + url.PathEscape(imageID)

	return c.do(ctx, http.MethodPut, u, "application/octet-stream", bytes.NewReader(image), nil)
}

// UploadInput uploads program input and returns its backend id.
func (c *Client) UploadInput(ctx context.Context, input []byte) (string, error) {
	var resp uuidResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/inputs", "application/octet-stream", bytes.NewReader(input), &resp); err != nil {
		return "", err
	}

	if resp.UUID == "" {
		return "", fmt.Errorf("%w: empty input id", ErrBadReply)
	}

	return resp.UUID, nil
}

// CreateSession starts proving imageID on inputID and returns the session id.
func (c *Client) CreateSession(ctx context.Context, imageID, inputID string, assumptions []string) (string, error) {
	if assumptions == nil {
		assumptions = []string{}
	}

	req := CreateSessionRequest{Img: imageID, Input: inputID, Assumptions: assumptions}

	var resp uuidResponse
	if err := c.postJSON(ctx, c.baseURL+"/sessions", req, &resp); err != nil {
		return "", err
	}

	if resp.UUID == "" {
		return "", fmt.Errorf("%w: empty session id", ErrBadReply)
	}

	return resp.UUID, nil
}

// SessionStatus returns the current state of a session.
func (c *Client) SessionStatus(ctx context.Context, sessionID string) (SessionState, error) {
	var resp StatusResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/sessions/"+url.PathEscape(sessionID), "", nil, &resp); err != nil {
		return nil, err
	}

	return ParseStatus(resp)
}

// Download fetches the receipt at receiptURL, decompresses it and checks it
// against the content id in the URL. receiptURL may be relative to the backend.
func (c *Client) Download(ctx context.Context, receiptURL string) ([]byte, error) {
	u, err := c.resolve(receiptURL)
	if err != nil {
		return nil, err
	}

	id, err := cidutil.Parse(path.Base(u.Path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadReply, err)
	}

	compressed, err := c.getRaw(ctx, u.String(), maxReceiptSize)
	if err != nil {
		return nil, err
	}

	artifact, err := engine.DecompressArtifact(compressed)
	if err != nil {
		return nil, fmt.Errorf("decompress receipt:\n%w", err)
	}

	if !cidutil.Check(id, artifact) {
		return nil, ErrReceiptMismatch
	}

	return artifact, nil
}

// ProverKey returns the backend's seal public key.
func (c *Client) ProverKey(ctx context.Context) ([]byte, error) {
	var resp proverResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/prover", "", nil, &resp); err != nil {
		return nil, err
	}

	key, err := hex.DecodeString(resp.PublicKey)
	if err != nil || len(key) != engine.ProverKeySize {
		return nil, fmt.Errorf("%w: invalid prover key %q", ErrBadReply, resp.PublicKey)
	}

	return key, nil
}

// resolve turns a possibly relative receipt URL into an absolute one.
func (c *Client) resolve(ref string) (*url.URL, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty receipt url", ErrBadReply)
	}

	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return nil, fmt.Errorf("parse base url:\n%w", err)
	}

	rel, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: receipt url %q", ErrBadReply, ref)
	}

	return base.ResolveReference(rel), nil
}
