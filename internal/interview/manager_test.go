package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prepdeck/prepdeck/internal/transcript"
)

func managerConfig() ControllerConfig {
	return ControllerConfig{
		Deadline:      time.Hour,
		Grace:         time.Hour,
		Heartbeat:     time.Hour,
		DedupeWindow:  5 * time.Second,
		CandidateName: "Alex",
	}
}

func TestManagerRejectsDuplicateRoom(t *testing.T) {
	m := NewManager(transcript.NewInMemoryStore())
	if _, err := m.Start("interview-1", managerConfig(), Outputs{}); err != nil {
		t.Fatalf("first Start() error: %v", err)
	}
	defer m.EndAll(context.Background(), "test_cleanup")

	if _, err := m.Start("interview-1", managerConfig(), Outputs{}); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("second Start() error = %v, want ErrAlreadyActive", err)
	}
}

func TestManagerRemovesSessionOnEnd(t *testing.T) {
	m := NewManager(transcript.NewInMemoryStore())
	var hookMu sync.Mutex
	var hooked []string
	m.SetEndedHook(func(roomID, reason string) {
		hookMu.Lock()
		hooked = append(hooked, roomID+"/"+reason)
		hookMu.Unlock()
	})

	if _, err := m.Start("interview-1", managerConfig(), Outputs{}); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if got := m.ActiveCount(); got != 1 {
		t.Fatalf("ActiveCount() = %d, want 1", got)
	}

	if err := m.End(context.Background(), "interview-1", "client_disconnect"); err != nil {
		t.Fatalf("End() error: %v", err)
	}
	if got := m.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount() = %d after End, want 0", got)
	}
	if _, err := m.Get("interview-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after End error = %v, want ErrNotFound", err)
	}

	hookMu.Lock()
	defer hookMu.Unlock()
	if len(hooked) != 1 || hooked[0] != "interview-1/client_disconnect" {
		t.Fatalf("ended hook calls = %v", hooked)
	}
}

func TestManagerEndUnknownRoom(t *testing.T) {
	m := NewManager(transcript.NewInMemoryStore())
	if err := m.End(context.Background(), "interview-missing", "client_disconnect"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("End() error = %v, want ErrNotFound", err)
	}
}

func TestManagerEndAllPersistsEverySession(t *testing.T) {
	store := transcript.NewInMemoryStore()
	m := NewManager(store)

	rooms := []string{"interview-1", "interview-2", "interview-3"}
	for i, roomID := range rooms {
		ctrl, err := m.Start(roomID, managerConfig(), Outputs{})
		if err != nil {
			t.Fatalf("Start(%s) error: %v", roomID, err)
		}
		ctrl.RecordTurn(SpeakerCandidate, fmt.Sprintf("answer %d", i), time.Time{}, ChannelConversationItem)
	}

	m.EndAll(context.Background(), "server_shutdown")

	if got := m.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount() = %d after EndAll, want 0", got)
	}
	for _, roomID := range rooms {
		ok, err := store.HasTranscript(context.Background(), roomID)
		if err != nil || !ok {
			t.Fatalf("HasTranscript(%s) = (%v, %v), want saved", roomID, ok, err)
		}
	}
}
