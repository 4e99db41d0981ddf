package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vatwizard/backend/internal/correction"
	"github.com/vatwizard/backend/internal/models"
	"github.com/vatwizard/backend/internal/session"
)

func newTestController(t *testing.T) (*Controller, *session.Store, *correction.Tracker) {
	t.Helper()
	store, err := session.NewStore(t.TempDir())
	require.NoError(t, err)
	tracker := correction.NewTracker()
	return NewController(store, tracker), store, tracker
}

func completeUpload(t *testing.T, store *session.Store, name string) {
	t.Helper()
	require.NoError(t, store.AddFile(models.FileRecord{Name: name}))
	require.NoError(t, store.SetProgress(name, 100))
}

func TestAdvanceBlockedByIncompleteUploads(t *testing.T) {
	c, store, _ := newTestController(t)

	_, err := c.Advance()
	assert.ErrorIs(t, err, ErrUploadsIncomplete)
	assert.Equal(t, models.StageUpload, c.Current())

	require.NoError(t, store.AddFile(models.FileRecord{Name: "a.csv"}))
	require.NoError(t, store.SetProgress("a.csv", 60))
	_, err = c.Advance()
	assert.ErrorIs(t, err, ErrUploadsIncomplete)
}

func TestAdvanceThroughAllStages(t *testing.T) {
	c, store, tracker := newTestController(t)
	completeUpload(t, store, "a.csv")

	stage, err := c.Advance()
	require.NoError(t, err)
	assert.Equal(t, models.StageCorrection, stage)

	// Pending issue blocks Correction exit
	tracker.Replace([]models.ValidationIssue{
		{ID: 1, FileName: "a.csv", Status: models.IssuePending},
	})
	_, err = c.Advance()
	assert.ErrorIs(t, err, ErrIssuesPending)

	require.NoError(t, tracker.MarkIgnored(1))
	stage, err = c.Advance()
	require.NoError(t, err)
	assert.Equal(t, models.StagePayment, stage)

	_, err = c.Advance()
	assert.ErrorIs(t, err, ErrPaymentRequired)

	require.NoError(t, store.SetPaymentCompleted(true))
	stage, err = c.Advance()
	require.NoError(t, err)
	assert.Equal(t, models.StageOverview, stage)

	_, err = c.Advance()
	assert.ErrorIs(t, err, ErrAtFinalStage)
}

func TestRetreatIsAlwaysFree(t *testing.T) {
	c, store, _ := newTestController(t)
	completeUpload(t, store, "a.csv")

	_, err := c.Advance()
	require.NoError(t, err)

	assert.Equal(t, models.StageUpload, c.Retreat())
	// At the first stage retreat stays put
	assert.Equal(t, models.StageUpload, c.Retreat())
}

func TestJumpRules(t *testing.T) {
	c, store, _ := newTestController(t)

	// Forward jump past the next stage is refused
	_, err := c.JumpTo(models.StagePayment)
	assert.ErrorIs(t, err, ErrSkipAhead)

	// Jump to the next stage goes through the exit guard
	_, err = c.JumpTo(models.StageCorrection)
	assert.ErrorIs(t, err, ErrUploadsIncomplete)

	completeUpload(t, store, "a.csv")
	stage, err := c.JumpTo(models.StageCorrection)
	require.NoError(t, err)
	assert.Equal(t, models.StageCorrection, stage)

	// Backward jump is always allowed
	stage, err = c.JumpTo(models.StageUpload)
	require.NoError(t, err)
	assert.Equal(t, models.StageUpload, stage)

	_, err = c.JumpTo(models.Stage(7))
	assert.Error(t, err)
}

func TestRestoreFromRouteParam(t *testing.T) {
	c, _, _ := newTestController(t)

	assert.Equal(t, models.StagePayment, c.Restore("3"))
	assert.Equal(t, models.StageUpload, c.Restore("banana"))
	assert.Equal(t, models.StageUpload, c.Restore("9"))
	assert.Equal(t, models.StageUpload, c.Restore(""))
}

func TestResetClearsEverything(t *testing.T) {
	c, store, tracker := newTestController(t)
	completeUpload(t, store, "a.csv")
	require.NoError(t, store.SetSessionID("a.csv", "sess-1"))
	tracker.Replace([]models.ValidationIssue{{ID: 1, Status: models.IssuePending}})

	_, err := c.Advance()
	require.NoError(t, err)

	stage, err := c.Reset()
	require.NoError(t, err)
	assert.Equal(t, models.StageUpload, stage)
	assert.Equal(t, 0, store.FileCount())
	assert.False(t, store.HasSessionData())
	assert.True(t, tracker.AllResolved())
}
