// Package irtypes defines the opaque IR this subsystem consumes: iteration
// domains, the expressions that connect them, and the tensors that own
// them. The rest of the fusion compiler (parsing, scheduling, emission) is
// an external collaborator; this package only carries the shapes that the
// equivalence-graph and double-buffer passes need to reason about.
package irtypes

// ParallelType classifies how an IterDomain's loop axis is executed on the
// GPU. Serial axes are ordinary loops; the others bind to hardware threads
// or are unrolled/vectorized by the emitter.
type ParallelType int

const (
	Serial ParallelType = iota
	Unroll
	Vectorize
	TIDx
	TIDy
	TIDz
	BIDx
	BIDy
	BIDz
)

// String returns the canonical spelling used in diagnostics and dumps.
func (p ParallelType) String() string {
	switch p {
	case Serial:
		return "Serial"
	case Unroll:
		return "Unroll"
	case Vectorize:
		return "Vectorize"
	case TIDx:
		return "TIDx"
	case TIDy:
		return "TIDy"
	case TIDz:
		return "TIDz"
	case BIDx:
		return "BIDx"
	case BIDy:
		return "BIDy"
	case BIDz:
		return "BIDz"
	default:
		return "Unknown"
	}
}

// IsThread reports whether p binds the axis to a hardware thread or block
// index, as opposed to Serial/Unroll/Vectorize.
func (p ParallelType) IsThread() bool {
	switch p {
	case TIDx, TIDy, TIDz, BIDx, BIDy, BIDz:
		return true
	default:
		return false
	}
}

// MemoryType is the GPU memory space a TensorView is allocated in.
type MemoryType int

const (
	Global MemoryType = iota
	Shared
	Local
)

func (m MemoryType) String() string {
	switch m {
	case Global:
		return "Global"
	case Shared:
		return "Shared"
	case Local:
		return "Local"
	default:
		return "Unknown"
	}
}
