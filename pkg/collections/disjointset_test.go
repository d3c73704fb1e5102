package collections

import "testing"

func TestDisjointSets_Basic(t *testing.T) {
	d := NewDisjointSets[string]()

	if d.Same("a", "b") {
		t.Error("a and b should not start mapped")
	}

	d.MapEntries("a", "b")
	if !d.Same("a", "b") {
		t.Error("a and b should be mapped after MapEntries")
	}
	if d.Same("a", "c") {
		t.Error("a and c should not be mapped")
	}
}

func TestDisjointSets_Transitive(t *testing.T) {
	d := NewDisjointSets[int]()
	d.MapEntries(1, 2)
	d.MapEntries(2, 3)

	if !d.Same(1, 3) {
		t.Error("1 and 3 should be transitively mapped through 2")
	}
}

func TestDisjointSets_MonotonicGroupCount(t *testing.T) {
	d := NewDisjointSets[int]()
	for i := 0; i < 10; i++ {
		d.FindSet(i)
	}
	n := d.NumSets()
	if n != 10 {
		t.Fatalf("expected 10 singleton sets, got %d", n)
	}

	pairs := [][2]int{{0, 1}, {2, 3}, {1, 2}, {5, 6}}
	for _, p := range pairs {
		d.MapEntries(p[0], p[1])
		next := d.NumSets()
		if next > n {
			t.Fatalf("set count increased from %d to %d after MapEntries", n, next)
		}
		n = next
	}
}

func TestDisjointSets_StrictAreMapped(t *testing.T) {
	d := NewDisjointSets[string]()
	d.MapEntries("a", "b")

	if !d.StrictAreMapped("a", "b") {
		t.Error("a and b should be strictly mapped")
	}
	if d.StrictAreMapped("a", "never-seen") {
		t.Error("unseen key should not be strictly mapped")
	}
}

func TestDisjointSets_OnceMappedStaysMapped(t *testing.T) {
	d := NewDisjointSets[int]()
	d.MapEntries(1, 2)
	d.MapEntries(3, 4)
	d.MapEntries(2, 3)
	d.MapEntries(5, 6)

	if !d.Same(1, 4) {
		t.Error("1 and 4 should remain mapped after further unrelated unions")
	}
}

func TestVisitSet_ResetIsCheap(t *testing.T) {
	v := NewVisitSet[string]()
	if v.Visit("x") {
		t.Error("first visit of x should return false")
	}
	if !v.Visit("x") {
		t.Error("second visit of x should return true")
	}
	v.Reset()
	if v.Visited("x") {
		t.Error("x should not be visited after Reset")
	}
}
