package session

import (
	"testing"

	"github.com/vatwizard/backend/internal/models"
)

type fixedHolder int

func (h fixedHolder) HeldCount() int { return int(h) }

func TestRecoveryDetect(t *testing.T) {
	s := newTestStore(t)

	// Nothing persisted, nothing to recover
	r := NewRecovery(s, fixedHolder(0))
	if _, ok := r.Detect(); ok {
		t.Errorf("Expected no recovery for empty store")
	}

	s.AddFile(models.FileRecord{Name: "a.csv"})
	s.SetProgress("a.csv", 100)
	s.SetSessionID("a.csv", "sess-1")

	// Live bytes present, no recovery prompt
	if _, ok := NewRecovery(s, fixedHolder(1)).Detect(); ok {
		t.Errorf("Expected no recovery while bytes are held")
	}

	// Session ids persisted, no live bytes: recoverable
	info, ok := NewRecovery(s, fixedHolder(0)).Detect()
	if !ok {
		t.Fatalf("Expected recovery to be offered")
	}
	if info.FileCount != 1 || info.SessionCount != 1 {
		t.Errorf("Unexpected recovery info: %+v", info)
	}
}

func TestRecoveryResumeStage(t *testing.T) {
	s := newTestStore(t)
	r := NewRecovery(s, fixedHolder(0))

	if got := r.Resume(); got != models.StageUpload {
		t.Errorf("Expected Upload for empty store, got %v", got)
	}

	s.AddFile(models.FileRecord{Name: "a.csv"})
	s.SetProgress("a.csv", 100)
	s.SetSessionID("a.csv", "sess-1")
	if got := r.Resume(); got != models.StageCorrection {
		t.Errorf("Expected Correction with session data, got %v", got)
	}

	s.SetPaymentCompleted(true)
	if got := r.Resume(); got != models.StageOverview {
		t.Errorf("Expected Overview after payment, got %v", got)
	}
}

func TestRecoveryDiscard(t *testing.T) {
	s := newTestStore(t)
	s.AddFile(models.FileRecord{Name: "a.csv"})
	s.SetProgress("a.csv", 100)
	s.SetSessionID("a.csv", "sess-1")

	r := NewRecovery(s, fixedHolder(0))
	stage, err := r.Discard()
	if err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if stage != models.StageUpload {
		t.Errorf("Expected Upload after discard, got %v", stage)
	}
	if s.HasSessionData() || s.FileCount() != 0 {
		t.Errorf("Expected store cleared after discard")
	}
}
