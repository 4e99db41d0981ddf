package session

import (
	"fmt"

	"github.com/vatwizard/backend/internal/models"
)

// ByteHolder reports how many admitted files still have live raw bytes.
// The upload coordinator implements it; after a restart it holds none.
type ByteHolder interface {
	HeldCount() int
}

// RecoveryInfo describes a resumable previous session.
type RecoveryInfo struct {
	FileCount    int  `json:"fileCount"`
	SessionCount int  `json:"sessionCount"`
	PaymentDone  bool `json:"paymentDone"`
}

// Recovery detects a persisted session whose raw file bytes are gone
// (typically after a restart) and lets the operator resume or discard.
type Recovery struct {
	store *Store
	bytes ByteHolder
}

// NewRecovery creates a recovery helper over the session store.
func NewRecovery(store *Store, bytes ByteHolder) *Recovery {
	return &Recovery{store: store, bytes: bytes}
}

// Detect reports whether a previous session should be offered for
// recovery: remote session ids persisted, but no live file bytes held.
func (r *Recovery) Detect() (RecoveryInfo, bool) {
	if !r.store.HasSessionData() || r.bytes.HeldCount() > 0 {
		return RecoveryInfo{}, false
	}
	return RecoveryInfo{
		FileCount:    r.store.FileCount(),
		SessionCount: len(r.store.SessionIDs()),
		PaymentDone:  r.store.PaymentCompleted(),
	}, true
}

// Resume keeps the persisted state and returns the stage the wizard
// should continue at.
func (r *Recovery) Resume() models.Stage {
	switch {
	case r.store.PaymentCompleted():
		return models.StageOverview
	case r.store.HasSessionData():
		return models.StageCorrection
	default:
		return models.StageUpload
	}
}

// Discard clears all persisted fields and returns the wizard to the
// Upload stage.
func (r *Recovery) Discard() (models.Stage, error) {
	if err := r.store.Reset(); err != nil {
		return models.StageUpload, fmt.Errorf("discarding session: %w", err)
	}
	fmt.Printf("[Session] Previous session discarded\n")
	return models.StageUpload, nil
}
