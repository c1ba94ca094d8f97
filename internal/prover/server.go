package prover

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"

	"ProofFetch/internal/engine"
	"ProofFetch/internal/logger"
	"ProofFetch/internal/storage"
)

const (
	// maxImageSize is the maximum program image size in bytes.
	maxImageSize = 32 << 20 // 32 MB

	// maxInputSize is the maximum program input size in bytes.
	maxInputSize = 1 << 20 // 1 MB
)

// Server exposes a Service over HTTP and optionally HTTP/3.
type Server struct {
	addr     string             // addr is the HTTP listen address
	quicAddr string             // quicAddr is the HTTP/3 listen address, empty to disable
	tlsKey   ed25519.PrivateKey // tlsKey signs the HTTP/3 certificate
	service  *Service           // service runs the sessions
	server   *http.Server       // server is the underlying HTTP server
	h3       *http3.Server      // h3 is the HTTP/3 server, nil when disabled
	udp      net.PacketConn     // udp is the socket h3 serves on
}

// NewServer creates an HTTP server for service.
func NewServer(addr string, service *Service) *Server {
	return &Server{addr: addr, service: service}
}

// EnableHTTP3 serves the same routes over HTTP/3 on quicAddr with a
// self-signed certificate derived from key. Call before Start.
func (s *Server) EnableHTTP3(quicAddr string, key ed25519.PrivateKey) {
	s.quicAddr = quicAddr
	s.tlsKey = key
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /images/{imageId}", s.handleUploadImage)
	mux.HandleFunc("POST /inputs", s.handleUploadInput)
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleSessionStatus)
	mux.HandleFunc("GET /receipts/{cid}", s.handleReceipt)
	mux.HandleFunc("GET /prover", s.handleProver)
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// Start binds the listeners and serves them in goroutines.
// Bind errors, such as an address already in use, are returned.
func (s *Server) Start() error {
	handler := s.Handler()

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s:\n%w", s.addr, err)
	}

	if s.quicAddr != "" {
		if err := s.startHTTP3(handler); err != nil {
			ln.Close()
			return err
		}
	}

	s.server = &http.Server{
		Addr:         ln.Addr().String(),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", ln.Addr().String())

		if err := s.server.Serve(ln); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound HTTP address, or "" before Start.
func (s *Server) Addr() string {
	if s.server == nil {
		return ""
	}

	return s.server.Addr
}

// startHTTP3 binds the UDP socket and serves HTTP/3 on it.
func (s *Server) startHTTP3(handler http.Handler) error {
	cert, err := generateCertificate(s.tlsKey)
	if err != nil {
		return fmt.Errorf("http3 certificate:\n%w", err)
	}

	conn, err := net.ListenPacket("udp", s.quicAddr)
	if err != nil {
		return fmt.Errorf("listen %s:\n%w", s.quicAddr, err)
	}

	s.udp = conn
	s.h3 = &http3.Server{
		Addr:    conn.LocalAddr().String(),
		Handler: handler,
		TLSConfig: http3.ConfigureTLSConfig(&tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS13,
		}),
		QUICConfig: &quic.Config{
			MaxIdleTimeout:  60 * time.Second,
			KeepAlivePeriod: 15 * time.Second,
		},
	}

	go func() {
		logger.Info("http3 api started", "addr", conn.LocalAddr().String())

		if err := s.h3.Serve(conn); err != nil && err != http.ErrServerClosed {
			logger.Error("http3 server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the listeners.
func (s *Server) Stop() error {
	if s.h3 != nil {
		if err := s.h3.Close(); err != nil {
			logger.Warn("http3 close", "error", err)
		}
		s.udp.Close()
	}

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// handleUploadImage handles PUT /images/{imageId}.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	image, ok := readBody(w, r, maxImageSize)
	if !ok {
		return
	}

	if err := s.service.UploadImage(r.PathValue("imageId"), image); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleUploadInput handles POST /inputs.
func (s *Server) handleUploadInput(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r, maxInputSize)
	if !ok {
		return
	}

	id, err := s.service.UploadInput(data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"uuid": id})
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	Img         string   `json:"img"`
	Input       string   `json:"input"`
	Assumptions []string `json:"assumptions"`
}

// handleCreateSession handles POST /sessions.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxInputSize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid session request")
		return
	}

	rec, err := s.service.CreateSession(req.Img, req.Input, req.Assumptions)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ErrImageNotFound) || errors.Is(err, ErrInputNotFound) {
			status = http.StatusNotFound
		}

		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"uuid": rec.ID})
}

// SessionStatusResponse is the body of GET /sessions/{id}.
type SessionStatusResponse struct {
	Status     string `json:"status"`
	State      string `json:"state,omitempty"`
	ReceiptURL string `json:"receipt_url,omitempty"`
	ErrorMsg   string `json:"error_msg,omitempty"`
}

// handleSessionStatus handles GET /sessions/{id}.
func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Session(r.PathValue("id"))
	if errors.Is(err, ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := SessionStatusResponse{
		Status:   rec.Status,
		State:    rec.State,
		ErrorMsg: rec.ErrorMsg,
	}

	if rec.Status == storage.StatusSucceeded {
		resp.ReceiptURL = "/receipts/" + rec.ReceiptCID
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleReceipt handles GET /receipts/{cid}. The body is zstd-compressed.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.Receipt(r.PathValue("cid"))
	if errors.Is(err, ErrReceiptNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/zstd")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ProverInfo is the body of GET /prover.
type ProverInfo struct {
	PublicKey string `json:"publicKey"`
	SealSize  int    `json:"sealSize"`
	Version   string `json:"version"`
}

// handleProver handles GET /prover.
func (s *Server) handleProver(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ProverInfo{
		PublicKey: hex.EncodeToString(s.service.PublicKey()),
		SealSize:  engine.SealSize,
		Version:   engine.ReceiptVersion,
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// readBody reads at most limit bytes of a non-empty body.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return nil, false
	}

	if int64(len(body)) > limit {
		writeError(w, http.StatusRequestEntityTooLarge, "body too large")
		return nil, false
	}

	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty body")
		return nil, false
	}

	return body, true
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
