package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vatwizard/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// SnapshotFileName is the single persisted record holding the workflow
// session. It is rewritten atomically on every mutation so a restart
// resumes exactly where the operator left off.
const SnapshotFileName = "session.msgpack"

// PaymentAbandonWindow is how long an initiated-but-unconfirmed payment
// marker is kept before being treated as abandoned.
const PaymentAbandonWindow = 30 * time.Minute

// ErrDuplicateName is returned when a file with the same name is already
// part of the session. Duplicate names are unsupported because the file
// name is the join key across progress, session ids and issues.
var ErrDuplicateName = errors.New("a file with this name is already part of the session")

// ErrUnknownFile is returned for operations on a file the session does
// not know about.
var ErrUnknownFile = errors.New("file is not part of the session")

// ErrNotUploaded guards the append-only session mapping: a remote
// session id may only be recorded once the file reached 100%.
var ErrNotUploaded = errors.New("file upload has not completed")

// snapshot is the serialized layout of the persisted session record.
type snapshot struct {
	UploadedFiles      []models.FileRecord `msgpack:"uploadedFiles"`
	UploadProgress     map[string]float64  `msgpack:"uploadProgress"`
	SessionIDs         map[string]string   `msgpack:"sessionIds"`
	PaymentCompleted   bool                `msgpack:"paymentCompleted"`
	PendingDelivery    map[string]string   `msgpack:"pendingDelivery"`
	PaymentInitiatedAt int64               `msgpack:"paymentInitiatedAt"`
}

// Store is the process-wide session state container. Every stage of the
// wizard reads and writes through it; it is the only shared mutable
// resource. All writes are serialized to disk before returning.
type Store struct {
	mu   sync.RWMutex
	snap snapshot
	path string
}

// NewStore creates a session store persisting under dataDir and
// rehydrates a previous snapshot if one exists.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	s := &Store{path: filepath.Join(dataDir, SnapshotFileName)}
	s.snap = emptySnapshot()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session snapshot: %w", err)
	}

	var snap snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		// A corrupt snapshot is not worth failing startup over; the
		// operator can start a new process.
		fmt.Printf("[Session] Discarding unreadable snapshot: %v\n", err)
		return s, nil
	}
	if snap.UploadProgress == nil {
		snap.UploadProgress = make(map[string]float64)
	}
	if snap.SessionIDs == nil {
		snap.SessionIDs = make(map[string]string)
	}
	if snap.PendingDelivery == nil {
		snap.PendingDelivery = make(map[string]string)
	}
	s.snap = snap
	fmt.Printf("[Session] Restored snapshot: %d files, %d session ids\n",
		len(snap.UploadedFiles), len(snap.SessionIDs))
	return s, nil
}

func emptySnapshot() snapshot {
	return snapshot{
		UploadProgress:  make(map[string]float64),
		SessionIDs:      make(map[string]string),
		PendingDelivery: make(map[string]string),
	}
}

// persistLocked writes the snapshot through a temp file rename. Callers
// must hold the write lock.
func (s *Store) persistLocked() error {
	data, err := msgpack.Marshal(&s.snap)
	if err != nil {
		return fmt.Errorf("encoding session snapshot: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing session snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing session snapshot: %w", err)
	}
	return nil
}

// AddFile admits a file record into the session. Names must be unique
// within a session.
func (s *Store) AddFile(rec models.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.snap.UploadedFiles {
		if f.Name == rec.Name {
			return ErrDuplicateName
		}
	}
	if rec.AdmittedAt.IsZero() {
		rec.AdmittedAt = time.Now()
	}
	s.snap.UploadedFiles = append(s.snap.UploadedFiles, rec)
	s.snap.UploadProgress[rec.Name] = 0
	return s.persistLocked()
}

// Files returns a copy of the admitted file records.
func (s *Store) Files() []models.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.FileRecord, len(s.snap.UploadedFiles))
	copy(out, s.snap.UploadedFiles)
	return out
}

// HasFile reports whether a record with the given name is admitted.
func (s *Store) HasFile(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.snap.UploadedFiles {
		if f.Name == name {
			return true
		}
	}
	return false
}

// RemoveFile drops a record and cascades to its progress, session id
// and pending-delivery entries.
func (s *Store) RemoveFile(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, f := range s.snap.UploadedFiles {
		if f.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrUnknownFile
	}
	s.snap.UploadedFiles = append(s.snap.UploadedFiles[:idx], s.snap.UploadedFiles[idx+1:]...)
	delete(s.snap.UploadProgress, name)
	delete(s.snap.SessionIDs, name)
	delete(s.snap.PendingDelivery, name)
	return s.persistLocked()
}

// SetProgress records an upload progress tick. Progress is clamped to
// [0,100] and never moves backwards.
func (s *Store) SetProgress(name string, pct float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snap.UploadProgress[name]; !ok {
		return ErrUnknownFile
	}
	if pct > 100 {
		pct = 100
	}
	if pct < s.snap.UploadProgress[name] {
		return nil
	}
	s.snap.UploadProgress[name] = pct
	return s.persistLocked()
}

// Progress returns a copy of the per-file progress map.
func (s *Store) Progress() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64, len(s.snap.UploadProgress))
	for k, v := range s.snap.UploadProgress {
		out[k] = v
	}
	return out
}

// AllUploaded reports whether every admitted file reached 100%.
// False when no files are admitted: the Upload stage guard requires at
// least one file.
func (s *Store) AllUploaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.snap.UploadedFiles) == 0 {
		return false
	}
	for _, f := range s.snap.UploadedFiles {
		if s.snap.UploadProgress[f.Name] < 100 {
			return false
		}
	}
	return true
}

// SetSessionID records the remote session id for a fully uploaded file.
func (s *Store) SetSessionID(name, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snap.UploadProgress[name]; !ok {
		return ErrUnknownFile
	}
	if s.snap.UploadProgress[name] < 100 {
		return ErrNotUploaded
	}
	s.snap.SessionIDs[name] = sessionID
	return s.persistLocked()
}

// SessionID returns the remote session id for a file, if recorded.
func (s *Store) SessionID(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.snap.SessionIDs[name]
	return id, ok
}

// SessionIDs returns a copy of the file→remote-session mapping.
func (s *Store) SessionIDs() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.snap.SessionIDs))
	for k, v := range s.snap.SessionIDs {
		out[k] = v
	}
	return out
}

// SetPaymentCompleted flips the payment flag. Only the payment
// collaborator's success callback should set it to true.
func (s *Store) SetPaymentCompleted(done bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.PaymentCompleted = done
	if done {
		s.snap.PaymentInitiatedAt = 0
	}
	return s.persistLocked()
}

// PaymentCompleted reports whether the payment collaborator confirmed.
func (s *Store) PaymentCompleted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.PaymentCompleted
}

// MarkPaymentInitiated notes that a checkout was started so an
// interrupted flow can be recognized later.
func (s *Store) MarkPaymentInitiated() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.PaymentInitiatedAt = time.Now().UnixMilli()
	return s.persistLocked()
}

// ClearStalePayment drops an initiated-payment marker older than the
// abandon window. Returns true if a stale marker was cleared.
func (s *Store) ClearStalePayment() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.PaymentInitiatedAt == 0 {
		return false, nil
	}
	initiated := time.UnixMilli(s.snap.PaymentInitiatedAt)
	if time.Since(initiated) <= PaymentAbandonWindow {
		return false, nil
	}
	s.snap.PaymentInitiatedAt = 0
	return true, s.persistLocked()
}

// MarkPendingDelivery flags a file as awaiting manual-review delivery
// to the given email address.
func (s *Store) MarkPendingDelivery(name, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snap.UploadProgress[name]; !ok {
		return ErrUnknownFile
	}
	s.snap.PendingDelivery[name] = email
	return s.persistLocked()
}

// PendingDelivery returns the registered delivery email for a file.
func (s *Store) PendingDelivery(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email, ok := s.snap.PendingDelivery[name]
	return email, ok
}

// HasSessionData reports whether any remote session ids are recorded.
// Used by recovery to detect a resumable previous run.
func (s *Store) HasSessionData() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snap.SessionIDs) > 0
}

// FileCount returns the number of admitted records.
func (s *Store) FileCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snap.UploadedFiles)
}

// Reset clears every persisted field and removes the snapshot file.
// Used by the explicit "start new process" action.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = emptySnapshot()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session snapshot: %w", err)
	}
	return nil
}
