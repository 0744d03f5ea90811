// Package model describes the external collaborators the synchronization
// engine treats as black boxes: the model kernel that turns a minibatch
// into a gradient, and the parameter vector it trains. No CNN/MLP layer or
// activation math lives here — only the contracts the master core needs to
// call.
package model

// Parameter is the ordered sequence of trainable weights the master owns.
// Its width is fixed at initialization time and never changes.
type Parameter []float64

// Width reports the parameter's fixed width W.
func (p Parameter) Width() int {
	return len(p)
}

// Clone copies the parameter, e.g. for a snapshot handed to the archiver.
func (p Parameter) Clone() Parameter {
	out := make(Parameter, len(p))
	copy(out, p)
	return out
}

// Kernel is the external, out-of-scope model implementation. The
// synchronization engine never computes gradients itself (that happens on
// workers); it only relies on Kernel for parameter initialization and, for
// kernels whose initial weights must be derived from the data, for
// accumulating each worker's proposed initial parameter into one.
type Kernel interface {
	// Width returns the parameter width this kernel expects.
	Width() int

	// NeedsDataDrivenInit reports whether parameter initialization must
	// wait for a DParameter contribution from every worker (orchestrator
	// phase 5) rather than being drawn independently at the master.
	NeedsDataDrivenInit() bool

	// AccumulateParameter folds a worker-proposed initial parameter into
	// dst, with no averaging factor (the kernel decides what "fold" means
	// for its own initialization scheme).
	AccumulateParameter(dst Parameter, contribution Parameter)

	// NeedsAveragedDelta reports whether a synchronous mode (BSP, FSP)
	// should divide its round's folded delta by N before applying it.
	// Optimizers that already normalize by batch size want the raw sum
	// instead, in which case this returns false and factorDelta is 1.
	NeedsAveragedDelta() bool
}

// UniformInit fills a fresh parameter with independent uniform noise in
// [-bound, bound], for kernels that do not need data-driven initialization.
func UniformInit(width int, bound float64, nextFloat func() float64) Parameter {
	p := make(Parameter, width)
	for i := range p {
		p[i] = (nextFloat()*2 - 1) * bound
	}
	return p
}

// ZeroInit fills a fresh parameter with zeros, for kernels that require it.
func ZeroInit(width int) Parameter {
	return make(Parameter, width)
}
