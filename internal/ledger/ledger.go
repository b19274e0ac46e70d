package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"rollcall/internal/store"
)

// StatusPresent is the only status the scan path ever writes. The
// ledger records presence; absence is derived, never stored.
const StatusPresent = "present"

// Calendar-date and time-of-day layouts used across the module.
// Dates stay zero-padded so lexicographic compare works for ranges.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// PresenceEvent asserts that a student was present on a date. The
// student id is not required to resolve; events may outlive the record
// they reference.
type PresenceEvent struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id"`
	Date      string `json:"date"`
	Status    string `json:"status"`
	Time      string `json:"time"`
}

const blobKey = "rollcall:events"

// Ledger is the append-only presence log kept in the blob store. The
// blob is the source of truth: Record rewrites it read-modify-write
// under the lock and reads always load the current log, so a second
// process sharing the key never has its appends overwritten. Record
// appends unconditionally: the at-most-one-per-day invariant is
// enforced by the scan controller's HasPresentToday pre-check, so bulk
// imports of historical data can bypass the scan path.
type Ledger struct {
	mu     sync.Mutex
	blob   store.Blob
	logger *zap.Logger
}

// New verifies the persisted event log, if any, decodes.
func New(ctx context.Context, blob store.Blob, logger *zap.Logger) (*Ledger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{blob: blob, logger: logger}
	events, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("ledger loaded", zap.Int("events", len(events)))
	return l, nil
}

// Record appends an event and persists. If the durable write fails the
// event counts as not recorded.
func (l *Ledger) Record(ctx context.Context, evt PresenceEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	events, err := l.load(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(append(events, evt))
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := l.blob.Set(ctx, blobKey, raw); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	l.logger.Info("presence recorded",
		zap.String("student_id", evt.StudentID),
		zap.String("date", evt.Date),
		zap.String("time", evt.Time))
	return nil
}

// HasPresentToday reports whether a present event already exists for
// the student on the given date.
func (l *Ledger) HasPresentToday(ctx context.Context, studentID, date string) (bool, error) {
	events, err := l.load(ctx)
	if err != nil {
		return false, err
	}
	for _, evt := range events {
		if evt.StudentID == studentID && evt.Date == date && evt.Status == StatusPresent {
			return true, nil
		}
	}
	return false, nil
}

// ByDate returns the events for one date in storage order.
func (l *Ledger) ByDate(ctx context.Context, date string) ([]PresenceEvent, error) {
	events, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []PresenceEvent
	for _, evt := range events {
		if evt.Date == date {
			out = append(out, evt)
		}
	}
	return out, nil
}

// All returns every event in storage order.
func (l *Ledger) All(ctx context.Context) ([]PresenceEvent, error) {
	return l.load(ctx)
}

func (l *Ledger) load(ctx context.Context) ([]PresenceEvent, error) {
	raw, ok, err := l.blob.Get(ctx, blobKey)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var events []PresenceEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	return events, nil
}
