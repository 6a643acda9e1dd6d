// Command wasirun drives the wasi_snapshot_preview1 host surface
// through a JSON-scripted sequence of syscalls, standing in for the
// "embedding runtime" spec.md §6 describes without compiling or
// instantiating any actual wasm guest (explicitly out of scope; see
// DESIGN.md's note on the teacher's deleted cmd/wazero/wazero.go).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
