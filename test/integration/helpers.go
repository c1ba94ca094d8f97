package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"ProofFetch/client"
	"ProofFetch/internal/engine"
	"ProofFetch/internal/fetch"
	"ProofFetch/internal/guest"
	"ProofFetch/internal/orchestrator"
	"ProofFetch/internal/prover"
	"ProofFetch/internal/storage"
	"ProofFetch/internal/verifier"
)

// safeBuffer wraps bytes.Buffer with a mutex for concurrent read/write.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write appends data to the buffer (implements io.Writer).
func (sb *safeBuffer) Write(p []byte) (int, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.buf.Write(p)
}

// String returns the buffer contents as a string.
func (sb *safeBuffer) String() string {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	return sb.buf.String()
}

// Backend is an in-process proving backend served over httptest.
type Backend struct {
	t        *testing.T
	dataDir  string
	db       *storage.Storage
	executor *engine.Executor
	service  *prover.Service
	server   *httptest.Server
	sealKey  *engine.SealKey
}

// StartBackend starts a backend storing its data under dataDir.
// A fixed seed keeps the prover key stable across restarts.
func StartBackend(t *testing.T, dataDir string) *Backend {
	t.Helper()

	db, err := storage.New(filepath.Join(dataDir, "db"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}

	sealKey, err := engine.SealKeyFromSeed(bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatalf("seal key: %v", err)
	}

	executor := engine.NewExecutor(fetch.New(fetch.WithTimeout(5 * time.Second)))
	guest.Register(executor)

	service := prover.NewService(engine.NewProver(executor, sealKey), db, prover.DefaultConfig())
	if _, err := service.Recover(); err != nil {
		t.Fatalf("recover: %v", err)
	}

	b := &Backend{
		t:        t,
		dataDir:  dataDir,
		db:       db,
		executor: executor,
		service:  service,
		server:   httptest.NewServer(prover.NewServer("", service).Handler()),
		sealKey:  sealKey,
	}

	t.Cleanup(b.Stop)

	return b
}

// Stop shuts the backend down. It is safe to call twice.
func (b *Backend) Stop() {
	if b.server == nil {
		return
	}

	b.server.Close()
	b.service.Close()
	b.executor.Close()
	b.db.Close()
	b.server = nil
}

// URL returns the backend base URL.
func (b *Backend) URL() string { return b.server.URL }

// Client returns a backend client.
func (b *Backend) Client() *client.Client { return client.New(b.server.URL) }

// Orchestrator returns an orchestrator trusting this backend's prover key.
func (b *Backend) Orchestrator(cfg orchestrator.Config) *orchestrator.Orchestrator {
	b.t.Helper()

	v, err := verifier.New(b.sealKey.PublicKey())
	if err != nil {
		b.t.Fatalf("verifier: %v", err)
	}

	return orchestrator.New(b.Client(), v, guest.Image, cfg)
}

// fastPoll polls often and gives up quickly.
func fastPoll() orchestrator.Config {
	return orchestrator.Config{
		PollInterval: 20 * time.Millisecond,
		MaxWait:      20 * time.Second,
	}
}

// StartUpstream serves payload as JSON on every path.
func StartUpstream(t *testing.T, payload any) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(srv.Close)

	return srv
}

// closedAddr returns an address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	addr := ln.Addr().String()
	ln.Close()

	return addr
}

// buildBinary compiles a command of this module.
// Uses a unique temp file per test to avoid races when tests run in parallel.
func buildBinary(t *testing.T, pkg string) string {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "prooffetch_test_*")
	if err != nil {
		t.Fatalf("create temp binary file: %v", err)
	}

	binary := tmpFile.Name()
	tmpFile.Close()

	cmd := exec.Command("go", "build", "-o", binary, pkg)
	cmd.Dir = getProjectRoot(t)

	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build %s failed: %v\n%s", pkg, err, output)
	}

	t.Cleanup(func() { os.Remove(binary) })

	return binary
}

// getProjectRoot returns the project root directory (containing go.mod).
func getProjectRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("get working dir: %v", err)
	}

	dir := wd
	for i := 0; i < 5; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		dir = filepath.Dir(dir)
	}

	t.Fatalf("could not find project root from %s", wd)

	return ""
}

// waitHealthy polls GET /health until it answers or the timeout expires.
func waitHealthy(t *testing.T, addr string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://" + addr + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}

		time.Sleep(50 * time.Millisecond)
	}

	t.Fatalf("backend at %s not healthy after %s", addr, timeout)
}

// startProcess runs binary with args until the test ends.
func startProcess(t *testing.T, binary string, args ...string) (*exec.Cmd, *safeBuffer) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	out := &safeBuffer{}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		cancel()
		t.Fatalf("start %s: %v", binary, err)
	}

	t.Cleanup(func() {
		cancel()
		cmd.Wait()
	})

	return cmd, out
}

// requireContains fails when s does not contain sub.
func requireContains(t *testing.T, s, sub string) {
	t.Helper()

	if !strings.Contains(s, sub) {
		t.Fatalf("output does not contain %q:\n%s", sub, s)
	}
}

// exitCode returns the process exit code of err from exec, or -1 if the
// process did not run.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}

	return -1
}
