package interview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prepdeck/prepdeck/internal/transcript"
)

// countingStore wraps the in-memory store and counts transcript writes.
type countingStore struct {
	*transcript.InMemoryStore
	mu    sync.Mutex
	saves int
}

func newCountingStore() *countingStore {
	return &countingStore{InMemoryStore: transcript.NewInMemoryStore()}
}

func (s *countingStore) SaveTranscript(ctx context.Context, rec transcript.Record) error {
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return s.InMemoryStore.SaveTranscript(ctx, rec)
}

func (s *countingStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type failingStore struct {
	*transcript.InMemoryStore
}

func (s *failingStore) SaveTranscript(ctx context.Context, rec transcript.Record) error {
	return errors.New("disk full")
}

type sink struct {
	mu         sync.Mutex
	said       []string
	terminated []string
}

func (s *sink) outputs() Outputs {
	return Outputs{
		Say: func(ctx context.Context, text string) error {
			s.mu.Lock()
			s.said = append(s.said, text)
			s.mu.Unlock()
			return nil
		},
		Terminate: func(reason string) {
			s.mu.Lock()
			s.terminated = append(s.terminated, reason)
			s.mu.Unlock()
		},
	}
}

func (s *sink) saidCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.said)
}

func (s *sink) terminations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.terminated...)
}

// startController builds a controller with long real timers so tests can
// drive the deadline callbacks directly, and a frozen clock they can advance.
func startController(t *testing.T, store transcript.Store, out Outputs) (*Controller, *time.Time) {
	t.Helper()
	ctrl := NewController("interview-1700000000000", ControllerConfig{
		Deadline:      time.Hour,
		Grace:         time.Hour,
		Heartbeat:     time.Hour,
		DedupeWindow:  5 * time.Second,
		CandidateName: "Alex",
	}, store, out)
	clock := sessionStart
	ctrl.now = func() time.Time { return clock }
	ctrl.Start()
	return ctrl, &clock
}

func TestConclusionFiresExactlyOnce(t *testing.T) {
	store := newCountingStore()
	out := &sink{}
	ctrl, clock := startController(t, store, out.outputs())
	defer ctrl.End(context.Background(), "test_cleanup")

	// Before the deadline the normal response pipeline stays in charge.
	if ctrl.UserTurnCompleted(context.Background()) {
		t.Fatalf("conclusion issued while still active")
	}

	*clock = sessionStart.Add(time.Hour)
	ctrl.OnSoftDeadline()
	if got := ctrl.Phase(); got != PhaseDeadlineReached {
		t.Fatalf("phase = %v, want deadline_reached", got)
	}

	*clock = sessionStart.Add(time.Hour + 5*time.Second)
	if !ctrl.UserTurnCompleted(context.Background()) {
		t.Fatalf("first post-deadline turn did not trigger conclusion")
	}
	// Boundary re-checks after conclusion must never repeat it.
	for i := 0; i < 3; i++ {
		if ctrl.UserTurnCompleted(context.Background()) {
			t.Fatalf("conclusion repeated on re-check %d", i)
		}
	}
	if got := out.saidCount(); got != 1 {
		t.Fatalf("conclusion spoken %d times, want 1", got)
	}
	if !strings.Contains(out.said[0], "Thank you for your time, Alex.") {
		t.Fatalf("conclusion text = %q", out.said[0])
	}
	if got := ctrl.Phase(); got != PhaseConcluded {
		t.Fatalf("phase = %v, want concluded", got)
	}
}

func TestSoftDeadlineIsIdempotent(t *testing.T) {
	store := newCountingStore()
	out := &sink{}
	ctrl, clock := startController(t, store, out.outputs())
	defer ctrl.End(context.Background(), "test_cleanup")

	*clock = sessionStart.Add(time.Hour)
	ctrl.OnSoftDeadline()
	*clock = sessionStart.Add(2 * time.Hour)
	ctrl.OnSoftDeadline()

	crossedAt, crossed := ctrl.timeline.DeadlineCrossedAt()
	if !crossed || !crossedAt.Equal(sessionStart.Add(time.Hour)) {
		t.Fatalf("deadline crossing = (%v, %v), want first firing", crossedAt, crossed)
	}
}

func TestEndPersistsOnceAndTerminates(t *testing.T) {
	store := newCountingStore()
	out := &sink{}
	ctrl, clock := startController(t, store, out.outputs())

	ctrl.RecordTurn(SpeakerInterviewer, "Hello Alex.", sessionStart, ChannelConversationItem)
	ctrl.RecordTurn(SpeakerCandidate, "Hi there.", sessionStart.Add(10*time.Second), ChannelConversationItem)

	*clock = sessionStart.Add(3 * time.Minute)
	if err := ctrl.End(context.Background(), "client_disconnect"); err != nil {
		t.Fatalf("End() error: %v", err)
	}
	if err := ctrl.End(context.Background(), "client_disconnect"); err != nil {
		t.Fatalf("second End() error: %v", err)
	}

	if got := store.saveCount(); got != 1 {
		t.Fatalf("transcript saved %d times, want 1", got)
	}
	if !ctrl.Persisted() {
		t.Fatalf("Persisted() = false after End")
	}
	if got := out.terminations(); len(got) != 1 || got[0] != "client_disconnect" {
		t.Fatalf("terminations = %v, want one client_disconnect", got)
	}

	rec, err := store.GetTranscript(context.Background(), "interview-1700000000000")
	if err != nil {
		t.Fatalf("GetTranscript() error: %v", err)
	}
	if len(rec.Messages) != 2 || rec.Duration != 3 {
		t.Fatalf("record = %d messages, duration %d", len(rec.Messages), rec.Duration)
	}
}

func TestEndSkipsSaveWhenStoreAlreadyHasTranscript(t *testing.T) {
	store := newCountingStore()
	out := &sink{}
	ctrl, _ := startController(t, store, out.outputs())

	// A save request already landed for this room through the HTTP path.
	if err := store.SaveTranscript(context.Background(), transcript.Record{RoomID: "interview-1700000000000"}); err != nil {
		t.Fatalf("seed save error: %v", err)
	}
	before := store.saveCount()

	if err := ctrl.End(context.Background(), "client_disconnect"); err != nil {
		t.Fatalf("End() error: %v", err)
	}
	if got := store.saveCount(); got != before {
		t.Fatalf("End rewrote an existing transcript (%d saves, want %d)", got, before)
	}
	if !ctrl.Persisted() {
		t.Fatalf("Persisted() = false, want true when store already holds the record")
	}
}

func TestHardStopPersistsBeforeTerminate(t *testing.T) {
	store := newCountingStore()
	var persistedAtTerminate bool
	ctrl := NewController("interview-42", ControllerConfig{
		Deadline:     time.Hour,
		Grace:        time.Hour,
		DedupeWindow: 5 * time.Second,
	}, store, Outputs{})
	clock := sessionStart
	ctrl.now = func() time.Time { return clock }
	ctrl.out.Terminate = func(reason string) {
		ok, err := store.HasTranscript(context.Background(), "interview-42")
		persistedAtTerminate = ok && err == nil
	}
	ctrl.Start()

	ctrl.RecordTurn(SpeakerCandidate, "Final answer.", sessionStart.Add(time.Minute), ChannelTranscription)
	clock = sessionStart.Add(time.Hour + time.Hour)
	ctrl.OnHardStop(context.Background())

	if !persistedAtTerminate {
		t.Fatalf("transcript was not in the store when Terminate ran")
	}
}

func TestEndStillTerminatesWhenSaveFails(t *testing.T) {
	store := &failingStore{InMemoryStore: transcript.NewInMemoryStore()}
	out := &sink{}
	ctrl, _ := startController(t, store, out.outputs())

	err := ctrl.End(context.Background(), "time_limit")
	if err == nil {
		t.Fatalf("End() = nil error, want persistence failure")
	}
	if got := out.terminations(); len(got) != 1 {
		t.Fatalf("terminations = %v, want session torn down despite save failure", got)
	}
	if ctrl.Persisted() {
		t.Fatalf("Persisted() = true after failed save")
	}
}

func TestRecordTurnAfterEndIsDropped(t *testing.T) {
	store := newCountingStore()
	out := &sink{}
	ctrl, _ := startController(t, store, out.outputs())

	if err := ctrl.End(context.Background(), "client_disconnect"); err != nil {
		t.Fatalf("End() error: %v", err)
	}
	if ctrl.RecordTurn(SpeakerCandidate, "Anyone there?", sessionStart.Add(time.Minute), ChannelTranscription) {
		t.Fatalf("turn recorded after session end")
	}
}

func TestTimersDriveFullLifecycle(t *testing.T) {
	store := newCountingStore()
	out := &sink{}
	ctrl := NewController("interview-7", ControllerConfig{
		Deadline:     40 * time.Millisecond,
		Grace:        40 * time.Millisecond,
		Heartbeat:    10 * time.Millisecond,
		DedupeWindow: 5 * time.Second,
	}, store, out.outputs())
	ctrl.Start()

	ctrl.RecordTurn(SpeakerCandidate, "Hello.", time.Time{}, ChannelConversationItem)

	deadline := time.Now().Add(2 * time.Second)
	for ctrl.Phase() != PhaseDeadlineReached {
		if time.Now().After(deadline) {
			t.Fatalf("soft deadline never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !ctrl.UserTurnCompleted(context.Background()) {
		t.Fatalf("post-deadline turn did not conclude")
	}
	for len(out.terminations()) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("hard stop never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := out.terminations(); got[0] != "time_limit" {
		t.Fatalf("terminations = %v, want time_limit", got)
	}
	if store.saveCount() != 1 {
		t.Fatalf("transcript saved %d times, want 1", store.saveCount())
	}
}
