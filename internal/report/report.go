// Package report provides database abstraction for recording fusion
// documents, pass runs, and diagnostics.
package report

import (
	"context"

	"github.com/tensorfuse/fusegen/pkg/model"
)

// DocumentRepository defines the interface for fusion-document operations.
type DocumentRepository interface {
	// GetPendingDocuments retrieves documents queued for lowering.
	GetPendingDocuments(ctx context.Context, limit int) ([]*model.FusionDocument, error)

	// GetDocumentByID retrieves a document by its ID.
	GetDocumentByID(ctx context.Context, id int64) (*model.FusionDocument, error)

	// GetDocumentByUUID retrieves a document by its UUID.
	GetDocumentByUUID(ctx context.Context, uuid string) (*model.FusionDocument, error)

	// UpdateStatus updates the lowering status of a document.
	UpdateStatus(ctx context.Context, id int64, status model.FusionStatus) error

	// UpdateStatusWithInfo updates the status with additional info.
	UpdateStatusWithInfo(ctx context.Context, id int64, status model.FusionStatus, info string) error

	// LockForLowering attempts to lock a document for lowering (prevents
	// concurrent processing of the same document).
	LockForLowering(ctx context.Context, id int64) (bool, error)
}

// PassRunRepository defines the interface for pass-run record operations.
type PassRunRepository interface {
	// SaveRun saves a pass run to the database.
	SaveRun(ctx context.Context, run *model.PassRun) error

	// GetRunByDocUUID retrieves the pass run for a document.
	GetRunByDocUUID(ctx context.Context, docUUID string) (*model.PassRun, error)

	// UpdateRun updates an existing pass run.
	UpdateRun(ctx context.Context, run *model.PassRun) error
}

// DiagnosticRepository defines the interface for diagnostic operations.
type DiagnosticRepository interface {
	// SaveDiagnostics saves multiple diagnostics to the database.
	SaveDiagnostics(ctx context.Context, diagnostics []model.Diagnostic) error

	// GetDiagnosticsByDocUUID retrieves diagnostics for a document.
	GetDiagnosticsByDocUUID(ctx context.Context, docUUID string) ([]model.Diagnostic, error)
}

// MasterDocumentRepository defines the interface for batch-submission
// operations.
type MasterDocumentRepository interface {
	// GetMasterDocument retrieves a master document by its UUID.
	GetMasterDocument(ctx context.Context, masterDUID string) (*MasterDocument, error)

	// UpdateMasterDocumentDiagnostics merges a sub-document's diagnostics
	// into the master's combined report.
	UpdateMasterDocumentDiagnostics(ctx context.Context, masterDUID string, docUUID string, diagnostics []model.Diagnostic) error

	// UpdateMasterDocumentStatus updates the lowering status of a master
	// document.
	UpdateMasterDocumentStatus(ctx context.Context, masterDUID string, status model.FusionStatus) error

	// GetIncompleteSubDocumentCount returns the count of incomplete
	// sub-documents.
	GetIncompleteSubDocumentCount(ctx context.Context, masterDUID string) (int, error)

	// CheckAndCompleteIfReady checks if all sub-documents are done and
	// updates status.
	CheckAndCompleteIfReady(ctx context.Context, masterDUID string) error
}

// MasterDocument represents a batch submission that may have sub-documents.
type MasterDocument struct {
	DUID        string                      `json:"duid" db:"duid"`
	SubDUIDs    []string                    `json:"sub_duids" db:"sub_duids"`
	Diagnostics *model.MasterDocDiagnostics `json:"diagnostics" db:"diagnostics"`
	Status      model.FusionStatus          `json:"status" db:"status"`
}
