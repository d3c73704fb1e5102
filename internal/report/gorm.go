package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tensorfuse/fusegen/pkg/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDocumentRepository implements DocumentRepository using GORM.
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository.
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// GetPendingDocuments retrieves documents that are pending lowering.
func (r *GormDocumentRepository) GetPendingDocuments(ctx context.Context, limit int) ([]*model.FusionDocument, error) {
	var records []FusionDocumentRecord

	err := r.db.WithContext(ctx).
		Where("status = ?", model.FusionStatusPending).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error

	if err != nil {
		return nil, fmt.Errorf("failed to query pending documents: %w", err)
	}

	result := make([]*model.FusionDocument, len(records))
	for i, rec := range records {
		result[i] = rec.ToModel()
	}

	return result, nil
}

// GetDocumentByID retrieves a document by its ID.
func (r *GormDocumentRepository) GetDocumentByID(ctx context.Context, id int64) (*model.FusionDocument, error) {
	var record FusionDocumentRecord

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document not found: %d", id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return record.ToModel(), nil
}

// GetDocumentByUUID retrieves a document by its UUID.
func (r *GormDocumentRepository) GetDocumentByUUID(ctx context.Context, uuid string) (*model.FusionDocument, error) {
	var record FusionDocumentRecord

	err := r.db.WithContext(ctx).Where("duid = ?", uuid).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document not found: %s", uuid)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return record.ToModel(), nil
}

// UpdateStatus updates the lowering status of a document.
func (r *GormDocumentRepository) UpdateStatus(ctx context.Context, id int64, status model.FusionStatus) error {
	result := r.db.WithContext(ctx).
		Model(&FusionDocumentRecord{}).
		Where("id = ?", id).
		Update("status", status)

	if result.Error != nil {
		return fmt.Errorf("failed to update status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("document not found: %d", id)
	}

	return nil
}

// UpdateStatusWithInfo updates the status with additional info.
func (r *GormDocumentRepository) UpdateStatusWithInfo(ctx context.Context, id int64, status model.FusionStatus, info string) error {
	result := r.db.WithContext(ctx).
		Model(&FusionDocumentRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"status_info": info,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("document not found: %d", id)
	}

	return nil
}

// LockForLowering attempts to lock a document for lowering using FOR UPDATE.
func (r *GormDocumentRepository) LockForLowering(ctx context.Context, id int64) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record FusionDocumentRecord

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND status = ?", id, model.FusionStatusPending).
			First(&record).Error

		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gorm.ErrRecordNotFound
			}
			return err
		}

		return tx.Model(&FusionDocumentRecord{}).
			Where("id = ?", id).
			Update("status", model.FusionStatusRunning).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to lock document: %w", err)
	}

	return true, nil
}

// GormPassRunRepository implements PassRunRepository using GORM.
type GormPassRunRepository struct {
	db      *gorm.DB
	version string
}

// NewGormPassRunRepository creates a new GormPassRunRepository.
func NewGormPassRunRepository(db *gorm.DB, version string) *GormPassRunRepository {
	return &GormPassRunRepository{db: db, version: version}
}

// SaveRun saves a pass run to the database.
func (r *GormPassRunRepository) SaveRun(ctx context.Context, run *model.PassRun) error {
	modeStatsJSON, err := json.Marshal(run.ModeStats)
	if err != nil {
		return fmt.Errorf("failed to marshal mode stats: %w", err)
	}

	record := &PassRunRecord{
		DUID:                 run.DocUUID,
		ModeStats:            modeStatsJSON,
		LoopsTransformed:     run.LoopsTransformed,
		SyncsInserted:        run.SyncsInserted,
		SelfMappingsDetected: run.SelfMappingsDetected,
		Version:              r.version,
		RunAt:                run.RunAt,
		RenderedKernelFile:   run.RenderedKernelFile,
		Error:                run.Error,
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to save pass run: %w", err)
	}

	return nil
}

// GetRunByDocUUID retrieves the pass run for a document.
func (r *GormPassRunRepository) GetRunByDocUUID(ctx context.Context, docUUID string) (*model.PassRun, error) {
	var record PassRunRecord

	err := r.db.WithContext(ctx).Where("duid = ?", docUUID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("pass run not found for document: %s", docUUID)
		}
		return nil, fmt.Errorf("failed to get pass run: %w", err)
	}

	return record.ToModel()
}

// UpdateRun updates an existing pass run.
func (r *GormPassRunRepository) UpdateRun(ctx context.Context, run *model.PassRun) error {
	modeStatsJSON, err := json.Marshal(run.ModeStats)
	if err != nil {
		return fmt.Errorf("failed to marshal mode stats: %w", err)
	}

	res := r.db.WithContext(ctx).
		Model(&PassRunRecord{}).
		Where("duid = ?", run.DocUUID).
		Updates(map[string]interface{}{
			"mode_stats":             modeStatsJSON,
			"loops_transformed":      run.LoopsTransformed,
			"syncs_inserted":         run.SyncsInserted,
			"self_mappings_detected": run.SelfMappingsDetected,
			"version":                r.version,
		})

	if res.Error != nil {
		return fmt.Errorf("failed to update pass run: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("pass run not found for document: %s", run.DocUUID)
	}

	return nil
}

// GormDiagnosticRepository implements DiagnosticRepository using GORM.
type GormDiagnosticRepository struct {
	db *gorm.DB
}

// NewGormDiagnosticRepository creates a new GormDiagnosticRepository.
func NewGormDiagnosticRepository(db *gorm.DB) *GormDiagnosticRepository {
	return &GormDiagnosticRepository{db: db}
}

// SaveDiagnostics saves multiple diagnostics to the database.
func (r *GormDiagnosticRepository) SaveDiagnostics(ctx context.Context, diagnostics []model.Diagnostic) error {
	if len(diagnostics) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		for _, d := range diagnostics {
			if d.Message == "" {
				continue
			}

			record := &DiagnosticRecord{
				DUID:      d.DocUUID,
				Code:      d.Code,
				Severity:  d.Severity,
				Message:   d.Message,
				AxisName:  d.AxisName,
				ExprKind:  d.ExprKind,
				CreatedAt: now,
			}

			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("failed to insert diagnostic: %w", err)
			}
		}

		return nil
	})
}

// GetDiagnosticsByDocUUID retrieves diagnostics for a document.
func (r *GormDiagnosticRepository) GetDiagnosticsByDocUUID(ctx context.Context, docUUID string) ([]model.Diagnostic, error) {
	var records []DiagnosticRecord

	err := r.db.WithContext(ctx).Where("duid = ?", docUUID).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnostics: %w", err)
	}

	diagnostics := make([]model.Diagnostic, len(records))
	for i, rec := range records {
		diagnostics[i] = rec.ToModel()
	}

	return diagnostics, nil
}

// GormMasterDocumentRepository implements MasterDocumentRepository using GORM.
type GormMasterDocumentRepository struct {
	db *gorm.DB
}

// NewGormMasterDocumentRepository creates a new GormMasterDocumentRepository.
func NewGormMasterDocumentRepository(db *gorm.DB) *GormMasterDocumentRepository {
	return &GormMasterDocumentRepository{db: db}
}

// GetMasterDocument retrieves a master document by its UUID.
func (r *GormMasterDocumentRepository) GetMasterDocument(ctx context.Context, masterDUID string) (*MasterDocument, error) {
	var record MasterDocumentRecord

	err := r.db.WithContext(ctx).Where("duid = ?", masterDUID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("master document not found: %s", masterDUID)
		}
		return nil, fmt.Errorf("failed to get master document: %w", err)
	}

	return record.ToMasterDocument()
}

// UpdateMasterDocumentDiagnostics merges a sub-document's diagnostics into
// the master's combined report atomically.
func (r *GormMasterDocumentRepository) UpdateMasterDocumentDiagnostics(ctx context.Context, masterDUID string, docUUID string, diagnostics []model.Diagnostic) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record MasterDocumentRecord

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("duid = ?", masterDUID).
			First(&record).Error
		if err != nil {
			return fmt.Errorf("failed to lock master document: %w", err)
		}

		existing := model.NewMasterDocDiagnostics()
		if record.Diagnostics != nil {
			if err := json.Unmarshal(record.Diagnostics, existing); err != nil {
				existing = model.NewMasterDocDiagnostics()
			}
		}

		for _, d := range diagnostics {
			existing.Add(docUUID, d)
		}

		newDiagnosticsJSON, err := json.Marshal(existing)
		if err != nil {
			return fmt.Errorf("failed to marshal diagnostics: %w", err)
		}

		return tx.Model(&MasterDocumentRecord{}).
			Where("duid = ?", masterDUID).
			Update("diagnostics", newDiagnosticsJSON).Error
	})
}

// UpdateMasterDocumentStatus updates the lowering status of a master document.
func (r *GormMasterDocumentRepository) UpdateMasterDocumentStatus(ctx context.Context, masterDUID string, status model.FusionStatus) error {
	updates := map[string]interface{}{
		"status": status,
	}

	if status == model.FusionStatusCompleted {
		updates["end_time"] = time.Now()
	}

	return r.db.WithContext(ctx).
		Model(&MasterDocumentRecord{}).
		Where("duid = ?", masterDUID).
		Updates(updates).Error
}

// GetIncompleteSubDocumentCount returns the count of incomplete sub-documents.
func (r *GormMasterDocumentRepository) GetIncompleteSubDocumentCount(ctx context.Context, masterDUID string) (int, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Model(&FusionDocumentRecord{}).
		Where("master_duid = ? AND status IN ?", masterDUID, []model.FusionStatus{model.FusionStatusPending, model.FusionStatusRunning}).
		Count(&count).Error

	if err != nil {
		return 0, fmt.Errorf("failed to count incomplete sub-documents: %w", err)
	}

	return int(count), nil
}

// CheckAndCompleteIfReady checks if all sub-documents are done and updates
// master document status.
func (r *GormMasterDocumentRepository) CheckAndCompleteIfReady(ctx context.Context, masterDUID string) error {
	count, err := r.GetIncompleteSubDocumentCount(ctx, masterDUID)
	if err != nil {
		return err
	}

	var newStatus model.FusionStatus
	if count == 0 {
		newStatus = model.FusionStatusCompleted
	} else {
		newStatus = model.FusionStatusRunning
	}

	return r.UpdateMasterDocumentStatus(ctx, masterDUID, newStatus)
}
