package model

import "testing"

func TestDiagnosticBuilder_Build(t *testing.T) {
	d := NewDiagnosticBuilder().
		WithDocUUID("duid-1").
		WithCode("AXIS_NOT_FOUND").
		WithSeverity("error").
		WithMessage("no valid double buffer axis").
		WithAxisName("a0").
		Build()

	if d.DocUUID != "duid-1" || d.Code != "AXIS_NOT_FOUND" || d.AxisName != "a0" {
		t.Errorf("unexpected diagnostic: %+v", d)
	}
	if d.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if d.IsEmpty() {
		t.Error("expected non-empty diagnostic")
	}
}

func TestMasterDocDiagnostics_Add(t *testing.T) {
	m := NewMasterDocDiagnostics()
	m.Add("duid-1", Diagnostic{Message: "a"})
	m.Add("duid-1", Diagnostic{Message: "b"})
	m.Add("duid-2", Diagnostic{Message: "c"})

	if len(m.ByDocUUID["duid-1"]) != 2 {
		t.Errorf("expected 2 diagnostics for duid-1, got %d", len(m.ByDocUUID["duid-1"]))
	}
	if len(m.ByDocUUID["duid-2"]) != 1 {
		t.Errorf("expected 1 diagnostic for duid-2, got %d", len(m.ByDocUUID["duid-2"]))
	}
}
