package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
)

// wasmMagic prefixes every WebAssembly binary.
var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

var (
	// ErrUnknownImage is returned by Load for images that are neither
	// registered native programs nor WebAssembly.
	ErrUnknownImage = errors.New("unknown program image")

	// ErrProgramNotFound is returned when executing an id that was never loaded.
	ErrProgramNotFound = errors.New("program not found")

	// ErrProgramFailed wraps errors returned by a program, guest traps and aborts.
	ErrProgramFailed = errors.New("program failed")

	// ErrNoJournal is returned when a program finishes without committing.
	ErrNoJournal = errors.New("program finished without committing a journal")
)

// Executor runs programs by identity.
// Native programs are registered up front; WebAssembly images are compiled
// on Load and run in a wazero sandbox.
type Executor struct {
	fetcher Fetcher // fetcher backs Env.Fetch

	mu     sync.RWMutex
	native map[ProgramID]Program // native maps image hash to registered program
	wasm   *wasmPool             // wasm holds compiled WebAssembly modules
}

// NewExecutor creates an executor whose programs fetch through fetcher.
func NewExecutor(fetcher Fetcher) *Executor {
	return &Executor{
		fetcher: fetcher,
		native:  make(map[ProgramID]Program),
		wasm:    newWasmPool(),
	}
}

// Register installs a native program under the identity of image.
func (e *Executor) Register(image []byte, p Program) ProgramID {
	id := ComputeProgramID(image)

	e.mu.Lock()
	e.native[id] = p
	e.mu.Unlock()

	return id
}

// Load makes image executable and returns its identity.
// Loading an image twice is a no-op.
func (e *Executor) Load(image []byte) (ProgramID, error) {
	id := ComputeProgramID(image)

	e.mu.RLock()
	_, native := e.native[id]
	e.mu.RUnlock()

	if native {
		return id, nil
	}

	if !bytes.HasPrefix(image, wasmMagic) {
		return ProgramID{}, ErrUnknownImage
	}

	if err := e.wasm.load(id, image); err != nil {
		return ProgramID{}, fmt.Errorf("load wasm:\n%w", err)
	}

	return id, nil
}

// Has reports whether id can be executed.
func (e *Executor) Has(id ProgramID) bool {
	e.mu.RLock()
	_, native := e.native[id]
	e.mu.RUnlock()

	return native || e.wasm.has(id)
}

// Execute runs the program id on input and returns its journal.
// Any failure, including a failure after a commit, discards the journal.
func (e *Executor) Execute(ctx context.Context, id ProgramID, input []byte) ([]byte, error) {
	env := &runEnv{input: input, fetcher: e.fetcher}

	e.mu.RLock()
	p, native := e.native[id]
	e.mu.RUnlock()

	var err error

	switch {
	case native:
		err = runNative(ctx, p, env)
	case e.wasm.has(id):
		err = e.wasm.execute(ctx, id, env)
	default:
		return nil, ErrProgramNotFound
	}

	if err != nil {
		return nil, err
	}

	if !env.committed {
		return nil, ErrNoJournal
	}

	return env.journal, nil
}

// runNative runs p, turning panics into failures.
func runNative(ctx context.Context, p Program, env *runEnv) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrProgramFailed, r)
		}
	}()

	if err := p.Run(ctx, env); err != nil {
		return fmt.Errorf("%w:\n%w", ErrProgramFailed, err)
	}

	return nil
}

// Close releases the WebAssembly runtime.
func (e *Executor) Close() error {
	return e.wasm.close()
}
