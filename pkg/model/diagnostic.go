package model

import "time"

// Diagnostic represents one finding surfaced while lowering a fusion
// document: a validation failure, a self-mapping report, or an informational
// note about a chosen stage depth.
type Diagnostic struct {
	ID        int64     `json:"id,omitempty" db:"id"`
	DocUUID   string    `json:"duid" db:"duid"`
	Code      string    `json:"code" db:"code"`
	Severity  string    `json:"severity" db:"severity"`
	Message   string    `json:"message" db:"message"`
	AxisName  string    `json:"axis_name,omitempty" db:"axis_name"`
	ExprKind  string    `json:"expr_kind,omitempty" db:"expr_kind"`
	CreatedAt time.Time `json:"created_at,omitempty" db:"created_at"`
}

// DiagnosticBuilder builds a Diagnostic with a fluent interface.
type DiagnosticBuilder struct {
	diagnostic Diagnostic
}

// NewDiagnosticBuilder creates a new DiagnosticBuilder.
func NewDiagnosticBuilder() *DiagnosticBuilder {
	return &DiagnosticBuilder{diagnostic: Diagnostic{CreatedAt: time.Now()}}
}

// WithDocUUID sets the owning document's UUID.
func (b *DiagnosticBuilder) WithDocUUID(docUUID string) *DiagnosticBuilder {
	b.diagnostic.DocUUID = docUUID
	return b
}

// WithCode sets the diagnostic's error code.
func (b *DiagnosticBuilder) WithCode(code string) *DiagnosticBuilder {
	b.diagnostic.Code = code
	return b
}

// WithSeverity sets the diagnostic's severity.
func (b *DiagnosticBuilder) WithSeverity(severity string) *DiagnosticBuilder {
	b.diagnostic.Severity = severity
	return b
}

// WithMessage sets the diagnostic's message text.
func (b *DiagnosticBuilder) WithMessage(message string) *DiagnosticBuilder {
	b.diagnostic.Message = message
	return b
}

// WithAxisName sets the axis name the diagnostic concerns.
func (b *DiagnosticBuilder) WithAxisName(axisName string) *DiagnosticBuilder {
	b.diagnostic.AxisName = axisName
	return b
}

// WithExprKind sets the expression kind the diagnostic concerns.
func (b *DiagnosticBuilder) WithExprKind(exprKind string) *DiagnosticBuilder {
	b.diagnostic.ExprKind = exprKind
	return b
}

// Build returns the built Diagnostic.
func (b *DiagnosticBuilder) Build() Diagnostic {
	return b.diagnostic
}

// IsEmpty returns true if the diagnostic carries no message.
func (d *Diagnostic) IsEmpty() bool {
	return d.Message == ""
}

// MasterDocDiagnostics groups diagnostics by the sub-document that raised
// them, for a batch submission's combined report.
type MasterDocDiagnostics struct {
	ByDocUUID map[string][]Diagnostic `json:"by_duid"`
}

// NewMasterDocDiagnostics creates an empty MasterDocDiagnostics.
func NewMasterDocDiagnostics() *MasterDocDiagnostics {
	return &MasterDocDiagnostics{ByDocUUID: make(map[string][]Diagnostic)}
}

// Add appends a diagnostic under its owning document UUID.
func (m *MasterDocDiagnostics) Add(docUUID string, d Diagnostic) {
	m.ByDocUUID[docUUID] = append(m.ByDocUUID[docUUID], d)
}
