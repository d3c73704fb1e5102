// Package model defines the core data structures used throughout the application.
package model

import (
	"encoding/json"
	"time"
)

// FusionStatus represents the lowering status of a fusion document.
type FusionStatus int

const (
	FusionStatusPending   FusionStatus = 0 // Not started
	FusionStatusRunning   FusionStatus = 1 // Running
	FusionStatusCompleted FusionStatus = 2 // Completed
	FusionStatusFailed    FusionStatus = 3 // Failed
)

// String returns the string representation of FusionStatus.
func (s FusionStatus) String() string {
	switch s {
	case FusionStatusPending:
		return "pending"
	case FusionStatusRunning:
		return "running"
	case FusionStatusCompleted:
		return "completed"
	case FusionStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LowerOptions holds the tunables a caller may set on a lowering request.
type LowerOptions struct {
	AllowSelfMapping bool `json:"allow_self_mapping,omitempty"`
	MaxWorkers       int  `json:"max_workers,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler for LowerOptions.
func (o *LowerOptions) UnmarshalJSON(data []byte) error {
	type Alias LowerOptions
	aux := &struct{ *Alias }{Alias: (*Alias)(o)}
	return json.Unmarshal(data, aux)
}

// FusionDocument represents one fusion graph submitted for lowering.
type FusionDocument struct {
	ID             int64          `json:"id" db:"id"`
	DocUUID        string         `json:"duid" db:"duid"`
	FusionName     string         `json:"fusion_name" db:"fusion_name"`
	IRPayload      string         `json:"ir_payload" db:"ir_payload"`
	Status         FusionStatus   `json:"status" db:"status"`
	StatusInfo     string         `json:"status_info" db:"status_info"`
	MasterDocUUID  *string        `json:"master_duid" db:"master_duid"`
	ArtifactBucket string         `json:"artifact_bucket" db:"artifact_bucket"`
	Options        LowerOptions   `json:"options" db:"options"`
	CreateTime     time.Time      `json:"create_time" db:"create_time"`
	BeginTime      *time.Time     `json:"begin_time" db:"begin_time"`
	EndTime        *time.Time     `json:"end_time" db:"end_time"`
}

// IsMasterDocument returns true if the document belongs to a batch submission.
func (d *FusionDocument) IsMasterDocument() bool {
	return d.MasterDocUUID != nil && *d.MasterDocUUID != ""
}

// NewFusionDocument creates a new FusionDocument instance.
func NewFusionDocument(id int64, docUUID, fusionName, irPayload string) *FusionDocument {
	return &FusionDocument{
		ID:         id,
		DocUUID:    docUUID,
		FusionName: fusionName,
		IRPayload:  irPayload,
		Status:     FusionStatusPending,
		CreateTime: time.Now(),
	}
}
