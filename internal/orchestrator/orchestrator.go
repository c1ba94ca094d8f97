// Package orchestrator drives a proving backend through one session per
// request and returns the verified, decoded envelope.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ProofFetch/client"
	"ProofFetch/internal/engine"
	"ProofFetch/internal/journal"
	"ProofFetch/internal/logger"
	"ProofFetch/internal/verifier"
)

const (
	// DefaultPollInterval is the wait between two status checks.
	DefaultPollInterval = 15 * time.Second

	// DefaultMaxWait bounds the whole poll loop.
	DefaultMaxWait = 30 * time.Minute
)

// Config holds the poll loop settings.
type Config struct {
	PollInterval time.Duration // PollInterval is the wait between status checks
	MaxWait      time.Duration // MaxWait bounds the poll loop; 0 disables the bound
	MaxPolls     int           // MaxPolls bounds status checks; 0 disables the bound
}

// DefaultConfig returns the default poll settings.
func DefaultConfig() Config {
	return Config{
		PollInterval: DefaultPollInterval,
		MaxWait:      DefaultMaxWait,
	}
}

// Backend is the proving backend boundary. *client.Client implements it.
type Backend interface {
	UploadImage(ctx context.Context, imageID string, image []byte) error
	UploadInput(ctx context.Context, input []byte) (string, error)
	CreateSession(ctx context.Context, imageID, inputID string, assumptions []string) (string, error)
	SessionStatus(ctx context.Context, sessionID string) (client.SessionState, error)
	Download(ctx context.Context, receiptURL string) ([]byte, error)
}

// Result is the outcome of one successful run.
type Result struct {
	Envelope   journal.Envelope // Envelope is the attested fetch result
	SessionID  string           // SessionID is the backend session
	ReceiptURL string           // ReceiptURL is where the receipt was downloaded from
	Valid      bool             // Valid is the commitment check against the requested URL
}

// Orchestrator runs fetch requests through a proving backend.
// It is safe for concurrent use; runs share only the program identity.
type Orchestrator struct {
	backend  Backend            // backend runs the sessions
	verifier *verifier.Verifier // verifier checks downloaded receipts
	image    []byte             // image is the fetch program image
	cfg      Config             // cfg holds the poll settings

	id    func() engine.ProgramID                    // id lazily computes the program identity
	sleep func(context.Context, time.Duration) error // sleep waits between polls
}

// New creates an orchestrator submitting image to backend.
func New(backend Backend, v *verifier.Verifier, image []byte, cfg Config) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	return &Orchestrator{
		backend:  backend,
		verifier: v,
		image:    image,
		cfg:      cfg,
		id: sync.OnceValue(func() engine.ProgramID {
			return engine.ComputeProgramID(image)
		}),
		sleep: sleepContext,
	}
}

// ProgramID returns the identity of the fetch program.
func (o *Orchestrator) ProgramID() engine.ProgramID {
	return o.id()
}

// Run fetches url through a proving session and verifies the receipt.
//
// A receipt that verifies but attests to another URL returns the Result
// with Valid false together with a KindVerification error wrapping
// ErrCommitmentMismatch.
func (o *Orchestrator) Run(ctx context.Context, url string) (*Result, error) {
	start := time.Now()
	imageID := o.ProgramID().String()

	if err := o.backend.UploadImage(ctx, imageID, o.image); err != nil {
		return nil, &Error{Kind: transportKind(err), Op: "upload image", Err: err}
	}

	inputID, err := o.backend.UploadInput(ctx, journal.EncodeInput(url))
	if err != nil {
		return nil, &Error{Kind: transportKind(err), Op: "upload input", Err: err}
	}

	sessionID, err := o.backend.CreateSession(ctx, imageID, inputID, nil)
	if err != nil {
		return nil, &Error{Kind: transportKind(err), Op: "create session", Err: err}
	}

	log := logger.With("session", sessionID)
	log.Info("session created", "image", o.ProgramID().Short(), "url", url)

	receiptURL, err := o.poll(ctx, sessionID, log)
	if err != nil {
		return nil, err
	}

	artifact, err := o.backend.Download(ctx, receiptURL)
	if err != nil {
		return nil, &Error{Kind: transportKind(err), Op: "download receipt", Session: sessionID, Err: err}
	}

	if err := o.verifier.Check(artifact, o.ProgramID()); err != nil {
		return nil, &Error{Kind: KindVerification, Op: "verify receipt", Session: sessionID, Err: err}
	}

	env, err := o.verifier.Decode(artifact)
	if err != nil {
		return nil, &Error{Kind: KindVerification, Op: "decode journal", Session: sessionID, Err: err}
	}

	res := &Result{
		Envelope:   env,
		SessionID:  sessionID,
		ReceiptURL: receiptURL,
		Valid:      verifier.CheckCommitment(url, env),
	}

	log.Info("receipt verified", "valid", res.Valid, logger.Timed(start))

	if !res.Valid {
		return res, &Error{Kind: KindVerification, Op: "check commitment", Session: sessionID, Err: ErrCommitmentMismatch}
	}

	return res, nil
}

// poll waits for a session to reach a terminal state and returns its receipt URL.
func (o *Orchestrator) poll(ctx context.Context, sessionID string, log *slog.Logger) (string, error) {
	var deadline time.Time
	if o.cfg.MaxWait > 0 {
		deadline = time.Now().Add(o.cfg.MaxWait)
	}

	last := ""

	for polls := 1; ; polls++ {
		state, err := o.backend.SessionStatus(ctx, sessionID)
		if err != nil {
			return "", &Error{Kind: transportKind(err), Op: "poll status", Session: sessionID, Err: err}
		}

		if desc := describe(state); desc != last {
			log.Info("session state", "status", state.Status(), "state", desc)
			last = desc
		}

		switch s := state.(type) {
		case client.Succeeded:
			if s.ReceiptURL == "" {
				return "", &Error{Kind: KindProtocol, Op: "poll status", Session: sessionID, Err: ErrMissingReceipt}
			}
			return s.ReceiptURL, nil

		case client.Failed:
			return "", &Error{
				Kind:    KindSessionFailed,
				Op:      "poll status",
				Session: sessionID,
				Err:     fmt.Errorf("session %s: %s", s.Code, s.Message),
			}
		}

		if o.cfg.MaxPolls > 0 && polls >= o.cfg.MaxPolls {
			return "", &Error{Kind: KindTimeout, Op: "poll status", Session: sessionID, Err: fmt.Errorf("%w: %d polls", ErrPollLimit, polls)}
		}

		wait := o.cfg.PollInterval
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return "", &Error{Kind: KindTimeout, Op: "poll status", Session: sessionID, Err: fmt.Errorf("%w: waited %s", ErrPollLimit, o.cfg.MaxWait)}
			}
			wait = min(wait, remaining)
		}

		if err := o.sleep(ctx, wait); err != nil {
			return "", &Error{Kind: contextKind(err), Op: "poll status", Session: sessionID, Err: err}
		}
	}
}

// transportKind classifies a backend client error.
func transportKind(err error) Kind {
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	if errors.Is(err, client.ErrUnknownStatus) || errors.Is(err, client.ErrBadReply) || errors.Is(err, client.ErrReceiptMismatch) {
		return KindProtocol
	}

	if errors.Is(err, engine.ErrMalformedReceipt) {
		return KindProtocol
	}

	return KindTransport
}

// contextKind classifies the error of a wait cut short by ctx. A caller
// deadline is a timeout; anything else is a cancellation.
func contextKind(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	return KindCanceled
}

// describe renders a state for change detection in logs.
func describe(state client.SessionState) string {
	if r, ok := state.(client.Running); ok && r.State != "" {
		return r.State
	}

	return state.Status()
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
