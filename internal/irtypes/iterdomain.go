package irtypes

import "fmt"

// IterDomain denotes one loop axis of one tensor. Instances are unique by
// pointer identity — two IterDomains are "the same axis" iff they are the
// same *IterDomain, equivalence across tensors is what the IdGraph exists
// to compute.
type IterDomain struct {
	Name         string
	ParallelType ParallelType
	IsBroadcast  bool
	Extent       Value
	IsRFactor    bool

	// Owner is the TensorView this axis belongs to, used by self-mapping
	// detection (two distinct axes of the same Owner must never be
	// equated in a mode that relies on them being distinct).
	Owner *TensorView
}

// NewIterDomain constructs a serial, non-broadcast axis with the given
// extent. Use the With* helpers to adjust flags.
func NewIterDomain(name string, extent Value) *IterDomain {
	return &IterDomain{Name: name, Extent: extent}
}

// WithParallelType returns id for chaining after setting its parallel type.
func (id *IterDomain) WithParallelType(p ParallelType) *IterDomain {
	id.ParallelType = p
	return id
}

// WithBroadcast marks id as a broadcast axis.
func (id *IterDomain) WithBroadcast() *IterDomain {
	id.IsBroadcast = true
	return id
}

// WithRFactor marks id as an rfactor axis.
func (id *IterDomain) WithRFactor() *IterDomain {
	id.IsRFactor = true
	return id
}

func (id *IterDomain) String() string {
	if id == nil {
		return "<nil iterdomain>"
	}
	extra := ""
	if id.IsBroadcast {
		extra += " bS"
	}
	if id.ParallelType != Serial {
		extra += " " + id.ParallelType.String()
	}
	return fmt.Sprintf("%s{%s%s}", id.Name, id.Extent, extra)
}
