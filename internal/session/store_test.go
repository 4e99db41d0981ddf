package session

import (
	"errors"
	"testing"

	"github.com/vatwizard/backend/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

func TestStoreAddAndRemoveFile(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddFile(models.FileRecord{Name: "a.csv", SizeBytes: 10}); err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	if !s.HasFile("a.csv") {
		t.Errorf("Expected a.csv to be admitted")
	}
	if err := s.AddFile(models.FileRecord{Name: "a.csv"}); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("Expected ErrDuplicateName, got %v", err)
	}

	if err := s.RemoveFile("a.csv"); err != nil {
		t.Fatalf("RemoveFile failed: %v", err)
	}
	if s.HasFile("a.csv") {
		t.Errorf("Expected a.csv to be gone")
	}
	if err := s.RemoveFile("a.csv"); !errors.Is(err, ErrUnknownFile) {
		t.Errorf("Expected ErrUnknownFile, got %v", err)
	}
}

func TestStoreProgressMonotonic(t *testing.T) {
	s := newTestStore(t)
	s.AddFile(models.FileRecord{Name: "a.csv"})

	if err := s.SetProgress("a.csv", 40); err != nil {
		t.Fatalf("SetProgress failed: %v", err)
	}
	// Backwards tick is ignored
	if err := s.SetProgress("a.csv", 20); err != nil {
		t.Fatalf("SetProgress failed: %v", err)
	}
	if got := s.Progress()["a.csv"]; got != 40 {
		t.Errorf("Expected progress 40, got %v", got)
	}
	// Overshoot clamps to 100
	if err := s.SetProgress("a.csv", 130); err != nil {
		t.Fatalf("SetProgress failed: %v", err)
	}
	if got := s.Progress()["a.csv"]; got != 100 {
		t.Errorf("Expected progress 100, got %v", got)
	}
	if err := s.SetProgress("ghost.csv", 10); !errors.Is(err, ErrUnknownFile) {
		t.Errorf("Expected ErrUnknownFile, got %v", err)
	}
}

func TestStoreAllUploaded(t *testing.T) {
	s := newTestStore(t)

	if s.AllUploaded() {
		t.Errorf("Empty session must not count as uploaded")
	}

	s.AddFile(models.FileRecord{Name: "a.csv"})
	s.AddFile(models.FileRecord{Name: "b.csv"})
	s.SetProgress("a.csv", 100)
	if s.AllUploaded() {
		t.Errorf("Expected AllUploaded false while b.csv incomplete")
	}
	s.SetProgress("b.csv", 100)
	if !s.AllUploaded() {
		t.Errorf("Expected AllUploaded true")
	}
}

func TestStoreSessionIDRequiresCompleteUpload(t *testing.T) {
	s := newTestStore(t)
	s.AddFile(models.FileRecord{Name: "a.csv"})

	if err := s.SetSessionID("a.csv", "sess-1"); !errors.Is(err, ErrNotUploaded) {
		t.Errorf("Expected ErrNotUploaded, got %v", err)
	}
	s.SetProgress("a.csv", 100)
	if err := s.SetSessionID("a.csv", "sess-1"); err != nil {
		t.Fatalf("SetSessionID failed: %v", err)
	}
	id, ok := s.SessionID("a.csv")
	if !ok || id != "sess-1" {
		t.Errorf("Expected sess-1, got %q (ok=%v)", id, ok)
	}
}

func TestStoreCascadingDelete(t *testing.T) {
	s := newTestStore(t)
	s.AddFile(models.FileRecord{Name: "a.csv"})
	s.SetProgress("a.csv", 100)
	s.SetSessionID("a.csv", "sess-1")
	s.MarkPendingDelivery("a.csv", "ops@example.com")

	if err := s.RemoveFile("a.csv"); err != nil {
		t.Fatalf("RemoveFile failed: %v", err)
	}
	if _, ok := s.SessionID("a.csv"); ok {
		t.Errorf("Session id must be removed with the file")
	}
	if _, ok := s.Progress()["a.csv"]; ok {
		t.Errorf("Progress must be removed with the file")
	}
	if _, ok := s.PendingDelivery("a.csv"); ok {
		t.Errorf("Pending delivery must be removed with the file")
	}
}

func TestStoreSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	s.AddFile(models.FileRecord{Name: "a.csv", SizeBytes: 42})
	s.SetProgress("a.csv", 100)
	s.SetSessionID("a.csv", "sess-1")
	s.SetPaymentCompleted(true)

	// New store over the same directory sees the snapshot
	restored, err := NewStore(dir)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	if !restored.HasFile("a.csv") {
		t.Errorf("Expected a.csv after restart")
	}
	if got := restored.Progress()["a.csv"]; got != 100 {
		t.Errorf("Expected progress 100 after restart, got %v", got)
	}
	if id, _ := restored.SessionID("a.csv"); id != "sess-1" {
		t.Errorf("Expected sess-1 after restart, got %q", id)
	}
	if !restored.PaymentCompleted() {
		t.Errorf("Expected payment flag after restart")
	}
}

func TestStoreReset(t *testing.T) {
	s := newTestStore(t)
	s.AddFile(models.FileRecord{Name: "a.csv"})
	s.SetProgress("a.csv", 100)
	s.SetSessionID("a.csv", "sess-1")
	s.SetPaymentCompleted(true)

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if s.FileCount() != 0 {
		t.Errorf("Expected no files after reset")
	}
	if s.HasSessionData() {
		t.Errorf("Expected no session data after reset")
	}
	if s.PaymentCompleted() {
		t.Errorf("Expected payment flag cleared after reset")
	}
}
