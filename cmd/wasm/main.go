//go:build js && wasm

// Command wasm exposes the merge engine to the browser via WebAssembly.
// After loading, it registers a global JavaScript function:
//
//	runRollout(jsonString) -> jsonString
//
// The input and output are a JSON-encoded RolloutInput and RolloutLog, the
// same contract the CLI uses.
package main

import (
	"syscall/js"

	"github.com/cxd309/merge-engine/internal/engine"
	"github.com/cxd309/merge-engine/internal/monitoring"
)

func main() {
	monitoring.SetLogger(nil)
	js.Global().Set("runRollout", js.FuncOf(runRollout))
	select {}
}

func runRollout(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return map[string]any{"error": "no input provided"}
	}

	result, err := engine.RunJSON(args[0].String())
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return result
}
