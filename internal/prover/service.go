// Package prover is the proving backend: it stores program images and
// inputs, runs proving sessions in the background and serves their status
// and receipts.
package prover

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"ProofFetch/internal/cidutil"
	"ProofFetch/internal/engine"
	"ProofFetch/internal/logger"
	"ProofFetch/internal/storage"
)

const (
	// defaultSessionTimeout bounds a single program execution.
	defaultSessionTimeout = 10 * time.Minute

	// interruptedMsg is recorded for sessions cut short by a restart.
	interruptedMsg = "session interrupted by backend restart"
)

var (
	// ErrImageIDMismatch is returned when an image does not hash to its id.
	ErrImageIDMismatch = errors.New("image does not match image id")

	// ErrImageNotFound is returned when a session names an unknown image.
	ErrImageNotFound = errors.New("image not found")

	// ErrInputNotFound is returned when a session names an unknown input.
	ErrInputNotFound = errors.New("input not found")

	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrReceiptNotFound is returned for unknown receipt ids.
	ErrReceiptNotFound = errors.New("receipt not found")

	// ErrAssumptions is returned when a session lists assumptions.
	ErrAssumptions = errors.New("assumptions are not supported")
)

// Config holds service settings.
type Config struct {
	// SessionTimeout bounds one execution; the session fails when exceeded.
	SessionTimeout time.Duration
}

// DefaultConfig returns the default service settings.
func DefaultConfig() Config {
	return Config{SessionTimeout: defaultSessionTimeout}
}

// Service runs proving sessions.
type Service struct {
	prover *engine.Prover   // prover executes and seals
	db     *storage.Storage // db persists images, inputs, sessions, receipts
	cfg    Config           // cfg holds the settings
	now    func() time.Time // now is the clock, replaceable in tests

	ctx    context.Context    // ctx is cancelled on Close
	cancel context.CancelFunc // cancel stops running sessions
	wg     sync.WaitGroup     // wg tracks session goroutines
}

// NewService creates a service.
func NewService(prover *engine.Prover, db *storage.Storage, cfg Config) *Service {
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = defaultSessionTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		prover: prover,
		db:     db,
		cfg:    cfg,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// PublicKey returns the prover's seal public key.
func (s *Service) PublicKey() []byte {
	return s.prover.PublicKey()
}

// Recover fails sessions left RUNNING by a previous process.
// Their executions are gone, so they can never reach SUCCEEDED.
func (s *Service) Recover() (int, error) {
	var stale []*storage.Session

	err := s.db.Sessions(func(rec *storage.Session) error {
		if !rec.Terminal() {
			stale = append(stale, rec)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan sessions:\n%w", err)
	}

	for _, rec := range stale {
		rec.Status = storage.StatusFailed
		rec.State = ""
		rec.ErrorMsg = interruptedMsg
		rec.UpdatedAt = s.now()

		if err := s.db.PutSession(rec); err != nil {
			return 0, fmt.Errorf("fail session %s:\n%w", rec.ID, err)
		}
	}

	return len(stale), nil
}

// UploadImage stores a program image. Uploading the same image twice is a no-op.
func (s *Service) UploadImage(imageID string, image []byte) error {
	id, err := engine.ParseProgramID(imageID)
	if err != nil {
		return err
	}

	if engine.ComputeProgramID(image) != id {
		return ErrImageIDMismatch
	}

	if _, err := s.prover.Executor().Load(image); err != nil {
		return fmt.Errorf("load image:\n%w", err)
	}

	if err := s.db.PutImage(id.String(), image); err != nil {
		return fmt.Errorf("store image:\n%w", err)
	}

	logger.Debug("image uploaded", "image", id.Short(), "size", len(image))

	return nil
}

// UploadInput stores program input and returns its content id.
func (s *Service) UploadInput(data []byte) (string, error) {
	id := cidutil.String(data)
	if id == "" {
		return "", fmt.Errorf("hash input")
	}

	if err := s.db.PutInput(id, data); err != nil {
		return "", fmt.Errorf("store input:\n%w", err)
	}

	return id, nil
}

// CreateSession starts proving imageID on inputID.
func (s *Service) CreateSession(imageID, inputID string, assumptions []string) (*storage.Session, error) {
	if len(assumptions) != 0 {
		return nil, ErrAssumptions
	}

	id, err := s.ensureLoaded(imageID)
	if err != nil {
		return nil, err
	}

	input, err := s.db.Input(inputID)
	if err != nil {
		return nil, fmt.Errorf("read input:\n%w", err)
	}
	if input == nil {
		return nil, ErrInputNotFound
	}

	now := s.now()
	rec := &storage.Session{
		ID:        newSessionID(),
		ImageID:   id.String(),
		InputID:   inputID,
		Status:    storage.StatusRunning,
		State:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.db.PutSession(rec); err != nil {
		return nil, fmt.Errorf("store session:\n%w", err)
	}

	logger.Info("session created", "session", rec.ID, "image", id.Short(), "input", inputID)

	s.wg.Add(1)
	go s.run(*rec, id, input)

	return rec, nil
}

// ensureLoaded makes sure the executor can run imageID, reloading the
// stored image after a restart.
func (s *Service) ensureLoaded(imageID string) (engine.ProgramID, error) {
	id, err := engine.ParseProgramID(imageID)
	if err != nil {
		return id, err
	}

	if s.prover.Executor().Has(id) {
		return id, nil
	}

	image, err := s.db.Image(id.String())
	if err != nil {
		return id, fmt.Errorf("read image:\n%w", err)
	}
	if image == nil {
		return id, ErrImageNotFound
	}

	if _, err := s.prover.Executor().Load(image); err != nil {
		return id, fmt.Errorf("load image:\n%w", err)
	}

	return id, nil
}

// Session returns the current record of a session.
func (s *Service) Session(id string) (*storage.Session, error) {
	rec, err := s.db.Session(id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrSessionNotFound
	}

	return rec, nil
}

// Receipt returns the compressed receipt stored under cid.
func (s *Service) Receipt(cid string) ([]byte, error) {
	data, err := s.db.Receipt(cid)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrReceiptNotFound
	}

	return data, nil
}

// Close cancels running sessions and waits for them to record their outcome.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

// run executes one session and records its terminal state.
func (s *Service) run(rec storage.Session, id engine.ProgramID, input []byte) {
	defer s.wg.Done()

	start := time.Now()
	log := logger.With("session", rec.ID)

	rec.State = "executing"
	rec.UpdatedAt = s.now()
	if err := s.db.PutSession(&rec); err != nil {
		log.Error("update session", "error", err)
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.SessionTimeout)
	defer cancel()

	receipt, err := s.prover.Prove(ctx, id, input)
	if err != nil {
		s.fail(&rec, err)
		log.Warn("session failed", "error", err, logger.Timed(start))
		return
	}

	artifact := receipt.Marshal()

	compressed, err := engine.CompressArtifact(artifact)
	if err != nil {
		s.fail(&rec, err)
		log.Error("compress receipt", "error", err)
		return
	}

	rec.Status = storage.StatusSucceeded
	rec.State = ""
	rec.ReceiptCID = cidutil.String(artifact)
	rec.UpdatedAt = s.now()

	if err := s.db.CompleteSession(&rec, compressed); err != nil {
		log.Error("store receipt", "error", err)
		s.fail(&rec, err)
		return
	}

	log.Info("session succeeded", "receipt", rec.ReceiptCID, "size", len(artifact), logger.Timed(start))
}

// fail records a FAILED session.
func (s *Service) fail(rec *storage.Session, cause error) {
	rec.Status = storage.StatusFailed
	rec.State = ""
	rec.ReceiptCID = ""
	rec.ErrorMsg = cause.Error()
	rec.UpdatedAt = s.now()

	if err := s.db.PutSession(rec); err != nil {
		logger.Error("record failed session", "session", rec.ID, "error", err)
	}
}

// newSessionID returns a random 128-bit hex id.
func newSessionID() string {
	var b [16]byte
	rand.Read(b[:])

	return hex.EncodeToString(b[:])
}
