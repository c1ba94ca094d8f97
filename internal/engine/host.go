package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// errGuestAbort is recorded when the guest calls abort.
var errGuestAbort = errors.New("guest called abort")

// execContext holds the host-side state of one WebAssembly execution.
type execContext struct {
	env     *runEnv // env collects input, fetches and the journal
	fetched []byte  // fetched is the last fetch result awaiting read_fetched
	hostErr error   // hostErr is the error that made a host function trap
}

// fail records err and traps the guest.
func (c *execContext) fail(err error) {
	c.hostErr = err
	panic(err)
}

// buildHostModule creates the "env" module imported by guests:
//
//	input_len() i32
//	read_input(ptr i32)
//	commit(ptr, len i32)
//	fetch(ptr, len i32) i32     // body length, or -1 on error
//	read_fetched(ptr i32)
//	abort()
func (p *wasmPool) buildHostModule(ctx context.Context, execCtx *execContext) (api.Module, error) {
	return p.runtime.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context) uint32 {
			return uint32(len(execCtx.env.input))
		}).
		Export("input_len").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, ptr uint32) {
			hostWrite(execCtx, m, ptr, execCtx.env.input)
		}).
		Export("read_input").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, ptr, length uint32) {
			hostCommit(execCtx, m, ptr, length)
		}).
		Export("commit").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, ptr, length uint32) int32 {
			return hostFetch(ctx, execCtx, m, ptr, length)
		}).
		Export("fetch").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, ptr uint32) {
			hostWrite(execCtx, m, ptr, execCtx.fetched)
		}).
		Export("read_fetched").
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context) {
			execCtx.fail(errGuestAbort)
		}).
		Export("abort").
		Instantiate(ctx)
}

// hostWrite copies data into guest memory at ptr.
func hostWrite(execCtx *execContext, m api.Module, ptr uint32, data []byte) {
	if len(data) == 0 {
		return
	}

	mem := m.Memory()
	if mem == nil || !mem.Write(ptr, data) {
		execCtx.fail(fmt.Errorf("write %d bytes at %d: out of range", len(data), ptr))
	}
}

// hostRead copies length bytes of guest memory starting at ptr.
func hostRead(execCtx *execContext, m api.Module, ptr, length uint32) []byte {
	if length == 0 {
		return nil
	}

	mem := m.Memory()
	if mem == nil {
		execCtx.fail(errors.New("guest has no memory"))
	}

	data, ok := mem.Read(ptr, length)
	if !ok {
		execCtx.fail(fmt.Errorf("read %d bytes at %d: out of range", length, ptr))
	}

	out := make([]byte, length)
	copy(out, data)

	return out
}

// hostCommit writes the guest's journal. A second commit traps.
func hostCommit(execCtx *execContext, m api.Module, ptr, length uint32) {
	data := hostRead(execCtx, m, ptr, length)

	if err := execCtx.env.Commit(data); err != nil {
		execCtx.fail(err)
	}
}

// hostFetch performs a GET for the URL in guest memory.
// The body is kept until the guest copies it out with read_fetched.
func hostFetch(ctx context.Context, execCtx *execContext, m api.Module, ptr, length uint32) int32 {
	url := string(hostRead(execCtx, m, ptr, length))

	body, err := execCtx.env.Fetch(ctx, url)
	if err != nil {
		execCtx.fetched = nil
		return -1
	}

	execCtx.fetched = body

	return int32(len(body))
}
