package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"rollcall/internal/store"
)

// ErrNotFound is returned when a student id does not resolve.
var ErrNotFound = errors.New("student not found")

// StudentRecord is one roster entry. The id is assigned at registration
// and never changes or gets reused.
type StudentRecord struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	FatherName string    `json:"father_name"`
	SchoolName string    `json:"school_name"`
	Class      string    `json:"class"`
	Section    string    `json:"section"`
	RollNumber string    `json:"roll_number"`
	Gender     string    `json:"gender,omitempty"`
	PhotoURL   string    `json:"photo_url,omitempty"`
	CodeURL    string    `json:"code_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

const blobKey = "rollcall:students"

// Store keeps the roster in the blob store, in insertion order. The
// blob is the source of truth: the api and the worker both mutate the
// same key, so every operation reads the current collection and
// mutations rewrite it read-modify-write under the lock. Nothing is
// cached between calls.
type Store struct {
	mu     sync.Mutex
	blob   store.Blob
	logger *zap.Logger
}

// New verifies the persisted roster, if any, decodes.
func New(ctx context.Context, blob store.Blob, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{blob: blob, logger: logger}
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("roster loaded", zap.Int("students", len(records)))
	return s, nil
}

// Add appends a record and persists. Id uniqueness is the caller's
// responsibility at construction time (ids are random UUIDs).
func (s *Store) Add(ctx context.Context, rec StudentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := s.persist(ctx, append(records, rec)); err != nil {
		return err
	}
	s.logger.Info("student registered", zap.String("id", rec.ID), zap.String("name", rec.Name))
	return nil
}

// FindByID resolves an id against the current roster.
func (s *Store) FindByID(ctx context.Context, id string) (StudentRecord, error) {
	records, err := s.load(ctx)
	if err != nil {
		return StudentRecord{}, err
	}
	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return StudentRecord{}, ErrNotFound
}

// All returns the roster in insertion order.
func (s *Store) All(ctx context.Context) ([]StudentRecord, error) {
	return s.load(ctx)
}

// Remove is an administrative escape hatch outside the normal flow.
// Ledger events referencing the removed id become orphans and stay.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	idx := -1
	for i, rec := range records {
		if rec.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	next := make([]StudentRecord, 0, len(records)-1)
	next = append(next, records[:idx]...)
	next = append(next, records[idx+1:]...)
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.logger.Warn("student removed", zap.String("id", id))
	return nil
}

func (s *Store) load(ctx context.Context) ([]StudentRecord, error) {
	raw, ok, err := s.blob.Get(ctx, blobKey)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var records []StudentRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	return records, nil
}

func (s *Store) persist(ctx context.Context, records []StudentRecord) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode roster: %w", err)
	}
	if err := s.blob.Set(ctx, blobKey, raw); err != nil {
		return fmt.Errorf("persist roster: %w", err)
	}
	return nil
}
