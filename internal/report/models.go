package report

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/tensorfuse/fusegen/pkg/model"
)

// FusionDocumentRecord represents the fusion_document table.
type FusionDocumentRecord struct {
	ID             int64              `gorm:"column:id;primaryKey;autoIncrement"`
	DUID           string             `gorm:"column:duid;type:varchar(64);uniqueIndex"`
	FusionName     string             `gorm:"column:fusion_name;type:varchar(256)"`
	IRPayload      string             `gorm:"column:ir_payload;type:longtext"`
	Status         model.FusionStatus `gorm:"column:status"`
	StatusInfo     string             `gorm:"column:status_info;type:text"`
	MasterDUID     *string            `gorm:"column:master_duid;type:varchar(64)"`
	ArtifactBucket string             `gorm:"column:artifact_bucket;type:varchar(128)"`
	Options        JSONField          `gorm:"column:options;type:json"`
	CreateTime     time.Time          `gorm:"column:create_time;autoCreateTime"`
	BeginTime      *time.Time         `gorm:"column:begin_time"`
	EndTime        *time.Time         `gorm:"column:end_time"`
}

// TableName returns the table name for FusionDocumentRecord.
func (FusionDocumentRecord) TableName() string {
	return "fusion_document"
}

// ToModel converts FusionDocumentRecord to model.FusionDocument.
func (r *FusionDocumentRecord) ToModel() *model.FusionDocument {
	doc := &model.FusionDocument{
		ID:             r.ID,
		DocUUID:        r.DUID,
		FusionName:     r.FusionName,
		IRPayload:      r.IRPayload,
		Status:         r.Status,
		StatusInfo:     r.StatusInfo,
		MasterDocUUID:  r.MasterDUID,
		ArtifactBucket: r.ArtifactBucket,
		CreateTime:     r.CreateTime,
		BeginTime:      r.BeginTime,
		EndTime:        r.EndTime,
	}
	if r.Options != nil {
		_ = json.Unmarshal(r.Options, &doc.Options)
	}
	return doc
}

// PassRunRecord represents the pass_run table.
type PassRunRecord struct {
	ID                   int64     `gorm:"column:id;primaryKey;autoIncrement"`
	DUID                 string    `gorm:"column:duid;type:varchar(64);uniqueIndex"`
	ModeStats            JSONField `gorm:"column:mode_stats;type:json"`
	LoopsTransformed     int64     `gorm:"column:loops_transformed"`
	SyncsInserted        int64     `gorm:"column:syncs_inserted"`
	SelfMappingsDetected int64     `gorm:"column:self_mappings_detected"`
	Version              string    `gorm:"column:version;type:varchar(32)"`
	RunAt                time.Time `gorm:"column:run_at"`
	RenderedKernelFile   string    `gorm:"column:rendered_kernel_file;type:varchar(512)"`
	Error                string    `gorm:"column:error;type:text"`
}

// TableName returns the table name for PassRunRecord.
func (PassRunRecord) TableName() string {
	return "pass_run"
}

// ToModel converts PassRunRecord to model.PassRun.
func (r *PassRunRecord) ToModel() (*model.PassRun, error) {
	run := &model.PassRun{
		DocUUID:              r.DUID,
		LoopsTransformed:     r.LoopsTransformed,
		SyncsInserted:        r.SyncsInserted,
		SelfMappingsDetected: r.SelfMappingsDetected,
		Version:              r.Version,
		RunAt:                r.RunAt,
		RenderedKernelFile:   r.RenderedKernelFile,
		Error:                r.Error,
	}
	if r.ModeStats != nil {
		if err := json.Unmarshal(r.ModeStats, &run.ModeStats); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// DiagnosticRecord represents the diagnostic table.
type DiagnosticRecord struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	DUID      string    `gorm:"column:duid;type:varchar(64);index"`
	Code      string    `gorm:"column:code;type:varchar(64)"`
	Severity  string    `gorm:"column:severity;type:varchar(16)"`
	Message   string    `gorm:"column:message;type:text"`
	AxisName  string    `gorm:"column:axis_name;type:varchar(128)"`
	ExprKind  string    `gorm:"column:expr_kind;type:varchar(64)"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name for DiagnosticRecord.
func (DiagnosticRecord) TableName() string {
	return "diagnostic"
}

// ToModel converts DiagnosticRecord to model.Diagnostic.
func (r *DiagnosticRecord) ToModel() model.Diagnostic {
	return model.Diagnostic{
		ID:        r.ID,
		DocUUID:   r.DUID,
		Code:      r.Code,
		Severity:  r.Severity,
		Message:   r.Message,
		AxisName:  r.AxisName,
		ExprKind:  r.ExprKind,
		CreatedAt: r.CreatedAt,
	}
}

// MasterDocumentRecord represents the master_document table for batch
// submissions.
type MasterDocumentRecord struct {
	DUID        string             `gorm:"column:duid;type:varchar(64);primaryKey"`
	SubDUIDs    JSONField          `gorm:"column:sub_duids;type:json"`
	Diagnostics JSONField          `gorm:"column:diagnostics;type:json"`
	Status      model.FusionStatus `gorm:"column:status"`
	EndTime     *time.Time         `gorm:"column:end_time"`
}

// TableName returns the table name for MasterDocumentRecord.
func (MasterDocumentRecord) TableName() string {
	return "master_document"
}

// ToMasterDocument converts MasterDocumentRecord to MasterDocument.
func (r *MasterDocumentRecord) ToMasterDocument() (*MasterDocument, error) {
	doc := &MasterDocument{DUID: r.DUID, Status: r.Status}

	if r.SubDUIDs != nil {
		if err := json.Unmarshal(r.SubDUIDs, &doc.SubDUIDs); err != nil {
			return nil, err
		}
	}

	if r.Diagnostics != nil {
		doc.Diagnostics = model.NewMasterDocDiagnostics()
		if err := json.Unmarshal(r.Diagnostics, doc.Diagnostics); err != nil {
			doc.Diagnostics = model.NewMasterDocDiagnostics()
		}
	}

	return doc, nil
}

// JSONField is a custom type for handling JSON fields in GORM.
type JSONField []byte

// Value implements driver.Valuer interface.
func (j JSONField) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner interface.
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
		return nil
	case string:
		*j = []byte(v)
		return nil
	default:
		return errors.New("unsupported type for JSONField")
	}
}

// MarshalJSON implements json.Marshaler interface.
func (j JSONField) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (j *JSONField) UnmarshalJSON(data []byte) error {
	if data == nil || string(data) == "null" {
		*j = nil
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}
