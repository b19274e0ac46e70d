package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rollcall/internal/ledger"
	"rollcall/internal/roster"
)

// State of a scan session.
type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

// Code classifies the outcome of one decoded identifier.
type Code string

const (
	// CodeRecorded means a fresh presence event was appended.
	CodeRecorded Code = "recorded"
	// CodeDuplicate means the student already has a present event today.
	CodeDuplicate Code = "duplicate"
	// CodeNotFound means the identifier did not resolve on the roster.
	CodeNotFound Code = "not_found"
	// CodeCooldown means the identifier repeated inside the suppression
	// window. Physical scanners re-read the same code many times per
	// second while it stays in frame; these repeats are dropped silently.
	CodeCooldown Code = "cooldown"
	// CodeInactive means the session is not running.
	CodeInactive Code = "inactive"
	// CodeStorageError means the durable write failed; the event counts
	// as not recorded and the same code may be retried after cooldown.
	CodeStorageError Code = "storage_error"
)

// Outcome is what one OnDecode call produced.
type Outcome struct {
	Code    Code                  `json:"code"`
	Message string                `json:"message"`
	Student *roster.StudentRecord `json:"student,omitempty"`
	Event   *ledger.PresenceEvent `json:"event,omitempty"`
	Err     error                 `json:"-"`
}

// DeviceErrorKind distinguishes transient decode misses from fatal
// device or permission failures.
type DeviceErrorKind string

const (
	// DeviceErrTransient covers "no target found" style misses.
	DeviceErrTransient DeviceErrorKind = "no_target"
	// DeviceErrFatal covers permission and device-level failures; it
	// forces the session back to idle.
	DeviceErrFatal DeviceErrorKind = "device"
)

// Clock is the injected time source so tests can drive the cooldown
// boundary deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
func SystemClock() Clock { return systemClock{} }

// Session consumes decoded identifiers from a single scan station,
// validates them against the roster and appends to the ledger at most
// once per student per day. One decode is processed at a time; the
// mutex exists so Stop is safe to call concurrently, not to support
// multiple stations (the check-then-append pair is only correct with
// one active session per shared ledger).
type Session struct {
	mu       sync.Mutex
	state    State
	cooldown time.Duration
	lastSeen map[string]time.Time
	roster   *roster.Store
	ledger   *ledger.Ledger
	clock    Clock
	logger   *zap.Logger
}

// NewSession wires a controller. A zero or negative cooldown falls
// back to 3 seconds; a nil clock falls back to the system clock.
func NewSession(r *roster.Store, l *ledger.Ledger, cooldown time.Duration, clock Clock, logger *zap.Logger) *Session {
	if cooldown <= 0 {
		cooldown = 3 * time.Second
	}
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		state:    StateIdle,
		cooldown: cooldown,
		lastSeen: make(map[string]time.Time),
		roster:   r,
		ledger:   l,
		clock:    clock,
		logger:   logger,
	}
}

// Start transitions Idle -> Active and clears the cooldown window.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateActive {
		return
	}
	s.state = StateActive
	s.lastSeen = make(map[string]time.Time)
	sessionTransitions.WithLabelValues("start").Inc()
	s.logger.Info("scan session started")
}

// Stop transitions to Idle. Safe at any time; the ledger never holds a
// partial event because Record is atomic from the session's view.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		return
	}
	s.state = StateIdle
	sessionTransitions.WithLabelValues("stop").Inc()
	s.logger.Info("scan session stopped")
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnDecode processes one decoded identifier. Checks run in order and
// short-circuit: cooldown, roster lookup, already-present-today, then
// the ledger append. Every outcome past the cooldown check stamps the
// identifier into the window, so a failing scan is not retried
// immediately either.
func (s *Session) OnDecode(ctx context.Context, text string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return s.outcome(Outcome{Code: CodeInactive, Message: "session not active"})
	}

	now := s.clock.Now()
	if seen, ok := s.lastSeen[text]; ok && now.Sub(seen) < s.cooldown {
		// Deliberate no-op, no window refresh.
		scanOutcomes.WithLabelValues(string(CodeCooldown)).Inc()
		return Outcome{Code: CodeCooldown, Message: "still in cooldown"}
	}
	s.lastSeen[text] = now

	rec, err := s.roster.FindByID(ctx, text)
	if err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			return s.outcome(Outcome{Code: CodeNotFound, Message: "student not found"})
		}
		s.logger.Error("roster read failed", zap.String("text", text), zap.Error(err))
		return s.outcome(Outcome{Code: CodeStorageError, Message: "roster unavailable, scan again", Err: err})
	}

	date := now.Format(ledger.DateLayout)
	marked, err := s.ledger.HasPresentToday(ctx, text, date)
	if err != nil {
		s.logger.Error("ledger read failed", zap.String("student_id", text), zap.Error(err))
		return s.outcome(Outcome{Code: CodeStorageError, Message: "ledger unavailable, scan again", Student: &rec, Err: err})
	}
	if marked {
		return s.outcome(Outcome{
			Code:    CodeDuplicate,
			Message: fmt.Sprintf("%s is already marked present", rec.Name),
			Student: &rec,
		})
	}

	evt := ledger.PresenceEvent{
		ID:        uuid.NewString(),
		StudentID: text,
		Date:      date,
		Status:    ledger.StatusPresent,
		Time:      now.Format(ledger.TimeLayout),
	}
	if err := s.ledger.Record(ctx, evt); err != nil {
		s.logger.Error("presence write failed", zap.String("student_id", text), zap.Error(err))
		return s.outcome(Outcome{
			Code:    CodeStorageError,
			Message: "could not record presence, scan again",
			Student: &rec,
			Err:     err,
		})
	}

	return s.outcome(Outcome{
		Code:    CodeRecorded,
		Message: fmt.Sprintf("%s marked present", rec.Name),
		Student: &rec,
		Event:   &evt,
	})
}

// OnDeviceError forwards an input-collaborator error. Transient misses
// are ignored; fatal errors end the session but never the process.
func (s *Session) OnDeviceError(kind DeviceErrorKind) {
	if kind == DeviceErrTransient {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateActive {
		s.state = StateIdle
		sessionTransitions.WithLabelValues("device_error").Inc()
		s.logger.Error("scan device failed, session stopped", zap.String("kind", string(kind)))
	}
}

func (s *Session) outcome(o Outcome) Outcome {
	scanOutcomes.WithLabelValues(string(o.Code)).Inc()
	return o
}
