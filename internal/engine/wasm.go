package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// wasmEntry is the function a guest module must export.
const wasmEntry = "main"

// wasmPool keeps compiled WebAssembly modules hot-loaded by program id.
// Executions are serialized because each one instantiates its own "env"
// host module on the shared runtime.
type wasmPool struct {
	runtime wazero.Runtime                      // runtime is the wazero runtime instance
	modules map[ProgramID]wazero.CompiledModule // modules maps image hash to compiled module
	mu      sync.RWMutex                        // mu protects modules
	execMu  sync.Mutex                          // execMu serializes executions
}

// newWasmPool creates a pool whose executions stop when their context ends.
func newWasmPool() *wasmPool {
	ctx := context.Background()
	cfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)

	return &wasmPool{
		runtime: wazero.NewRuntimeWithConfig(ctx, cfg),
		modules: make(map[ProgramID]wazero.CompiledModule),
	}
}

// load compiles image and stores it under id.
func (p *wasmPool) load(id ProgramID, image []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.modules[id]; exists {
		return nil
	}

	compiled, err := p.runtime.CompileModule(context.Background(), image)
	if err != nil {
		return fmt.Errorf("compile module:\n%w", err)
	}

	if _, ok := compiled.ExportedFunctions()[wasmEntry]; !ok {
		compiled.Close(context.Background())
		return fmt.Errorf("module does not export %q", wasmEntry)
	}

	p.modules[id] = compiled

	return nil
}

// has reports whether id is compiled.
func (p *wasmPool) has(id ProgramID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.modules[id]

	return ok
}

// execute instantiates module id and calls its entry point.
func (p *wasmPool) execute(ctx context.Context, id ProgramID, env *runEnv) error {
	p.mu.RLock()
	compiled, ok := p.modules[id]
	p.mu.RUnlock()

	if !ok {
		return ErrProgramNotFound
	}

	p.execMu.Lock()
	defer p.execMu.Unlock()

	execCtx := &execContext{env: env}

	hostModule, err := p.buildHostModule(ctx, execCtx)
	if err != nil {
		return fmt.Errorf("build host module:\n%w", err)
	}
	defer hostModule.Close(ctx)

	instance, err := p.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return fmt.Errorf("%w: instantiate module: %v", ErrProgramFailed, err)
	}
	defer instance.Close(ctx)

	return callEntry(ctx, instance, execCtx)
}

// callEntry calls the guest entry point and maps host-side failures.
func callEntry(ctx context.Context, instance api.Module, execCtx *execContext) error {
	fn := instance.ExportedFunction(wasmEntry)
	if fn == nil {
		return fmt.Errorf("%w: %q not exported", ErrProgramFailed, wasmEntry)
	}

	if _, err := fn.Call(ctx); err != nil {
		if execCtx.hostErr != nil {
			return fmt.Errorf("%w:\n%w", ErrProgramFailed, execCtx.hostErr)
		}

		return fmt.Errorf("%w: %v", ErrProgramFailed, err)
	}

	return nil
}

// close releases all compiled modules and the runtime.
func (p *wasmPool) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, compiled := range p.modules {
		compiled.Close(context.Background())
		delete(p.modules, id)
	}

	return p.runtime.Close(context.Background())
}
