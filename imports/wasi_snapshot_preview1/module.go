// Package wasi_snapshot_preview1 is the guest-facing ABI layer of
// spec.md §6: one function per wasi_snapshot_preview1 syscall name,
// each unmarshalling its wasm-stack arguments, building a
// guestmem.TransferPlan against the caller-supplied linear memory, and
// calling into internal/dispatch.Context for the actual operation.
//
// Unlike the teacher, which runs in the same process as the wazero
// engine and reaches guest memory through api.Module.Memory() directly,
// this layer is decoupled from any particular wasm runtime: a function
// takes a raw []byte view of linear memory and the already-decoded
// wasm-stack parameters, so it can be registered with whatever
// embedding host or replay harness (cmd/wasirun) drives it.
package wasi_snapshot_preview1

import (
	"context"

	"github.com/wasirun/preview1/internal/dispatch"
	"github.com/wasirun/preview1/internal/guestmem"
	"github.com/wasirun/preview1/internal/wasip1"
)

// ValueType mirrors the two wasm core value types preview-1 functions
// use on the stack, named independently of any particular runtime's
// own value-type enum.
type ValueType uint8

const (
	I32 ValueType = iota
	I64
)

// Function is the signature every registered host function implements:
// mem is the guest's linear memory for this call, params holds the
// already-widened-to-uint64 wasm stack arguments in declaration order.
// The return value is the preview-1 errno the wasm function itself
// returns (ESUCCESS on success).
type Function func(ctx context.Context, mem guestmem.Memory, params []uint64) wasip1.Errno

// HostFunc is one entry of the registration table: enough metadata for
// an embedding runtime to build its own import with the right arity,
// plus the Function that implements it.
type HostFunc struct {
	Name       string
	ParamTypes []ValueType
	ParamNames []string
	Fn         Function
}

const moduleName = "wasi_snapshot_preview1"

// ModuleName is the import module name every function below is
// registered under.
func ModuleName() string { return moduleName }

// Module binds the wasi_snapshot_preview1 ABI to a single dispatch
// Context, i.e. one running guest process.
type Module struct {
	ctx *dispatch.Context

	// Exit, if set, is invoked by proc_exit with the guest's requested
	// exit code. proc_exit never returns to its caller on a real
	// engine; this layer models that by deferring the actual process
	// or replay-loop termination to whatever embeds it rather than
	// calling os.Exit itself.
	Exit func(code uint32)
}

// New binds a Module to ctx.
func New(ctx *dispatch.Context) *Module {
	return &Module{ctx: ctx}
}

// Functions returns every wasi_snapshot_preview1 import this Module
// implements, keyed by syscall name, for an embedding runtime to
// register. Built fresh per call so each HostFunc's Fn closes over
// this particular Module.
func (m *Module) Functions() map[string]HostFunc {
	fns := []HostFunc{
		m.argsSizesGet(),
		m.argsGet(),
		m.environSizesGet(),
		m.environGet(),
		m.clockResGet(),
		m.clockTimeGet(),
		m.randomGet(),
		m.schedYield(),
		m.procExit(),
		m.fdAdvise(),
		m.fdAllocate(),
		m.fdClose(),
		m.fdDatasync(),
		m.fdFdstatGet(),
		m.fdFdstatSetFlags(),
		m.fdFilestatGet(),
		m.fdFilestatSetSize(),
		m.fdFilestatSetTimes(),
		m.fdPread(),
		m.fdPrestatGet(),
		m.fdPrestatDirName(),
		m.fdPwrite(),
		m.fdRead(),
		m.fdReaddir(),
		m.fdRenumber(),
		m.fdSeek(),
		m.fdSync(),
		m.fdTell(),
		m.fdWrite(),
		m.pathCreateDirectory(),
		m.pathFilestatGet(),
		m.pathFilestatSetTimes(),
		m.pathLink(),
		m.pathOpen(),
		m.pathReadlink(),
		m.pathRemoveDirectory(),
		m.pathRename(),
		m.pathSymlink(),
		m.pathUnlinkFile(),
		m.pollOneoff(),
		m.sockAccept(),
		m.sockRecv(),
		m.sockSend(),
		m.sockShutdown(),
		m.threadSpawn(),
		m.threadExit(),
	}
	out := make(map[string]HostFunc, len(fns))
	for _, f := range fns {
		out[f.Name] = f
	}
	return out
}

// commitOrFault commits p's queued result writes and returns ESUCCESS,
// collapsing any commit error into EFAULT (the guest pointed us outside
// its own memory).
func commitOrFault(p *guestmem.TransferPlan) wasip1.Errno {
	if err := p.Commit(); err != nil {
		return wasip1.EFAULT
	}
	return wasip1.ESUCCESS
}

func asErrno(err error) wasip1.Errno {
	return wasip1.ToErrno(err)
}
