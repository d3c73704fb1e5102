package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorfuse/fusegen/pkg/model"
)

func TestGormDocumentRepository_CreateAndFetch(t *testing.T) {
	db := newTestGormDB(t)
	repo := NewGormDocumentRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&FusionDocumentRecord{
		DUID:       "duid-1",
		FusionName: "softmax",
		Status:     model.FusionStatusPending,
	}).Error)

	doc, err := repo.GetDocumentByUUID(ctx, "duid-1")
	require.NoError(t, err)
	assert.Equal(t, "softmax", doc.FusionName)
	assert.Equal(t, model.FusionStatusPending, doc.Status)

	pending, err := repo.GetPendingDocuments(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.UpdateStatusWithInfo(ctx, doc.ID, model.FusionStatusFailed, "boom"))

	updated, err := repo.GetDocumentByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FusionStatusFailed, updated.Status)
	assert.Equal(t, "boom", updated.StatusInfo)
}

func TestGormDocumentRepository_LockForLowering(t *testing.T) {
	db := newTestGormDB(t)
	repo := NewGormDocumentRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&FusionDocumentRecord{
		DUID:   "duid-2",
		Status: model.FusionStatusPending,
	}).Error)
	doc, err := repo.GetDocumentByUUID(ctx, "duid-2")
	require.NoError(t, err)

	locked, err := repo.LockForLowering(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, locked)

	lockedAgain, err := repo.LockForLowering(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, lockedAgain, "already-running document should not lock again")
}

func TestGormPassRunRepository_SaveAndFetch(t *testing.T) {
	db := newTestGormDB(t)
	repo := NewGormPassRunRepository(db, "1.0.0")
	ctx := context.Background()

	run := &model.PassRun{
		DocUUID:          "duid-3",
		ModeStats:        map[string]model.ModeStats{"LOOP": {Groups: 2, Merges: 1}},
		LoopsTransformed: 3,
		SyncsInserted:    1,
	}
	require.NoError(t, repo.SaveRun(ctx, run))

	got, err := repo.GetRunByDocUUID(ctx, "duid-3")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.LoopsTransformed)
	assert.Equal(t, int64(2), got.ModeStats["LOOP"].Groups)
}

func TestGormDiagnosticRepository_SaveAndFetch(t *testing.T) {
	db := newTestGormDB(t)
	repo := NewGormDiagnosticRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveDiagnostics(ctx, []model.Diagnostic{
		{DocUUID: "duid-4", Code: "AXIS_NOT_FOUND", Message: "no axis"},
		{DocUUID: "duid-4", Code: "SELF_MAPPING", Message: "self mapped"},
	}))

	diags, err := repo.GetDiagnosticsByDocUUID(ctx, "duid-4")
	require.NoError(t, err)
	assert.Len(t, diags, 2)
}

func TestGormMasterDocumentRepository_CompletionFlow(t *testing.T) {
	db := newTestGormDB(t)
	docRepo := NewGormDocumentRepository(db)
	masterRepo := NewGormMasterDocumentRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&MasterDocumentRecord{DUID: "batch-1", Status: model.FusionStatusRunning}).Error)
	master := "batch-1"
	require.NoError(t, db.Create(&FusionDocumentRecord{DUID: "sub-1", MasterDUID: &master, Status: model.FusionStatusRunning}).Error)

	count, err := masterRepo.GetIncompleteSubDocumentCount(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	sub, err := docRepo.GetDocumentByUUID(ctx, "sub-1")
	require.NoError(t, err)
	require.NoError(t, docRepo.UpdateStatus(ctx, sub.ID, model.FusionStatusCompleted))

	require.NoError(t, masterRepo.CheckAndCompleteIfReady(ctx, "batch-1"))

	got, err := masterRepo.GetMasterDocument(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, model.FusionStatusCompleted, got.Status)
}
