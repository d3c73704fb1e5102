package irtypes

// Fusion is the fused expression list the rest of the compiler hands to
// this subsystem: an ordered set of TensorViews connected by Expressions.
type Fusion struct {
	Inputs  []*TensorView
	Outputs []*TensorView
	Exprs   []Expression
}

// NewFusion constructs an empty Fusion.
func NewFusion() *Fusion {
	return &Fusion{}
}

// AddExpr appends e to the fusion's expression list and records it as the
// definition of every TensorView it produces via a LoadStoreOp.
func (f *Fusion) AddExpr(e Expression) {
	f.Exprs = append(f.Exprs, e)
	if ls, ok := e.(*LoadStoreOp); ok {
		ls.Out.SetDefinition(ls)
	}
}

// AllTensorViews returns every TensorView reachable from the fusion's
// inputs, outputs, and LoadStoreOp expressions, deduplicated.
func (f *Fusion) AllTensorViews() []*TensorView {
	seen := map[*TensorView]bool{}
	var out []*TensorView
	add := func(tv *TensorView) {
		if tv != nil && !seen[tv] {
			seen[tv] = true
			out = append(out, tv)
		}
	}
	for _, tv := range f.Inputs {
		add(tv)
	}
	for _, tv := range f.Outputs {
		add(tv)
	}
	for _, e := range f.Exprs {
		if ls, ok := e.(*LoadStoreOp); ok {
			add(ls.In)
			add(ls.Out)
		}
	}
	return out
}

// AllIterDomains returns every IterDomain owned by a TensorView in the
// fusion, deduplicated, in a stable order.
func (f *Fusion) AllIterDomains() []*IterDomain {
	seen := map[*IterDomain]bool{}
	var out []*IterDomain
	for _, tv := range f.AllTensorViews() {
		for _, id := range tv.Domain {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
