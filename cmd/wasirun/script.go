package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// Script is the JSON replay format cmd/wasirun drives against a
// wasi_snapshot_preview1.Module: a fixed linear-memory size and an
// ordered list of syscall invocations. There is no guest wasm module
// behind this; the script plays the part of "whatever sequence of
// imports a compiled guest would have issued," per spec.md §1's
// Non-goal of actually executing guest code.
type Script struct {
	MemorySize uint32 `json:"memory_size"`
	Calls      []Call `json:"calls"`
}

// Call is one syscall invocation: the import name (matching a
// wasi_snapshot_preview1.HostFunc.Name), its already-widened wasm-stack
// params in declaration order, any memory pokes to apply before the
// call (for params the guest would have written, e.g. an iovec array
// or a path string), and an optional expected errno name for
// assertion.
type Call struct {
	Syscall      string `json:"syscall"`
	Params       []uint64 `json:"params"`
	Pokes        []Poke `json:"pokes,omitempty"`
	ExpectErrno  string `json:"expect_errno,omitempty"`
}

// Poke writes Hex-decoded bytes, or Text verbatim, at Offset into guest
// memory before a Call runs. Exactly one of Hex/Text should be set.
type Poke struct {
	Offset uint32 `json:"offset"`
	Hex    string `json:"hex,omitempty"`
	Text   string `json:"text,omitempty"`
}

func (p Poke) bytes() ([]byte, error) {
	if p.Hex != "" {
		return hex.DecodeString(p.Hex)
	}
	return []byte(p.Text), nil
}

// LoadScript reads and parses a Script from path.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	return &s, nil
}
