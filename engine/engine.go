package engine

import (
	"alma.local/shatb/oracle"
	"alma.local/shatb/padding"
)

// Inputs are the engine's input ports as sampled on a rising clock edge.
type Inputs struct {
	ResetN     bool // active low
	BlockValid bool
	BlockData  padding.Block
}

// Outputs are the engine's output ports after a rising clock edge.
type Outputs struct {
	HashValid bool
	HashData  oracle.Digest
}

// Engine is the device under test: a clocked single-block SHA-256
// compressor. The simulator calls Posedge once per rising clock edge with
// the sampled inputs; the engine's internals are opaque to the testbench.
type Engine interface {
	Posedge(in Inputs) Outputs
}

// Func adapts an ordinary function to the Engine interface.
type Func func(in Inputs) Outputs

// Posedge calls f(in).
func (f Func) Posedge(in Inputs) Outputs {
	return f(in)
}
