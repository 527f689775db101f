package interview

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prepdeck/prepdeck/internal/transcript"
)

// Speaker identifies who produced a conversation turn.
type Speaker string

const (
	SpeakerCandidate   Speaker = "candidate"
	SpeakerInterviewer Speaker = "interviewer"
)

// CaptureChannel names the event source a turn arrived through. The same
// utterance can surface on both channels; the timeline keeps one copy.
type CaptureChannel string

const (
	ChannelConversationItem CaptureChannel = "conversation_item"
	ChannelTranscription    CaptureChannel = "transcription"
)

// Turn is one utterance as observed by the timeline.
type Turn struct {
	ID      string
	Speaker Speaker
	Text    string
	At      time.Time
	Channel CaptureChannel
}

// Timeline owns the ordered conversation capture for a single interview
// session. Turns are append-only; the interview/Q&A partition is derived from
// each turn's observed time against the deadline crossing.
type Timeline struct {
	mu sync.Mutex

	startedAt         time.Time
	turns             []Turn
	deadlineCrossed   bool
	deadlineCrossedAt time.Time

	dedupeWindow time.Duration
}

func NewTimeline(startedAt time.Time, dedupeWindow time.Duration) *Timeline {
	if dedupeWindow <= 0 {
		dedupeWindow = 5 * time.Second
	}
	return &Timeline{startedAt: startedAt, dedupeWindow: dedupeWindow}
}

// Record appends a turn unless it duplicates a recently recorded turn from
// the same speaker. The two capture channels stamp different times for one
// utterance, so duplicates are matched on normalized text within a trailing
// window rather than on timestamps. Returns true when the turn was kept.
func (tl *Timeline) Record(speaker Speaker, text string, at time.Time, channel CaptureChannel) bool {
	norm := normalizeText(text)
	if norm == "" {
		return false
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()

	for i := len(tl.turns) - 1; i >= 0; i-- {
		prev := tl.turns[i]
		if at.Sub(prev.At) > tl.dedupeWindow {
			break
		}
		if prev.Speaker == speaker && normalizeText(prev.Text) == norm {
			return false
		}
	}

	tl.turns = append(tl.turns, Turn{
		ID:      uuid.NewString(),
		Speaker: speaker,
		Text:    text,
		At:      at,
		Channel: channel,
	})
	return true
}

// MarkDeadline latches the deadline crossing. Only the first call has any
// effect; it returns true exactly once.
func (tl *Timeline) MarkDeadline(at time.Time) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.deadlineCrossed {
		return false
	}
	tl.deadlineCrossed = true
	tl.deadlineCrossedAt = at
	return true
}

// DeadlineCrossedAt returns the crossing time and whether it happened.
func (tl *Timeline) DeadlineCrossedAt() (time.Time, bool) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.deadlineCrossedAt, tl.deadlineCrossed
}

// Turns returns a copy of all recorded turns in capture order.
func (tl *Timeline) Turns() []Turn {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	out := make([]Turn, len(tl.turns))
	copy(out, tl.turns)
	return out
}

// Split partitions the recorded turns into the interview portion and the
// post-deadline Q&A portion. A turn belongs to the interview when it was
// observed strictly before the deadline crossing; if the deadline never
// crossed, everything is interview. Capture order is preserved in both halves
// and every turn lands in exactly one of them.
func (tl *Timeline) Split() (interview, qna []Turn) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if !tl.deadlineCrossed {
		interview = make([]Turn, len(tl.turns))
		copy(interview, tl.turns)
		return interview, nil
	}

	for _, turn := range tl.turns {
		if turn.At.Before(tl.deadlineCrossedAt) {
			interview = append(interview, turn)
		} else {
			qna = append(qna, turn)
		}
	}
	return interview, qna
}

// BuildRecord projects the timeline into its durable transcript form.
func (tl *Timeline) BuildRecord(roomID string, endedAt time.Time) transcript.Record {
	interview, qna := tl.Split()
	all := tl.Turns()

	crossedAt, crossed := tl.DeadlineCrossedAt()
	interviewEnd := endedAt
	if crossed {
		interviewEnd = crossedAt
	}

	tl.mu.Lock()
	startedAt := tl.startedAt
	tl.mu.Unlock()

	return transcript.Record{
		RoomID:            roomID,
		Messages:          toTranscriptTurns(all),
		InterviewMessages: toTranscriptTurns(interview),
		QnAMessages:       toTranscriptTurns(qna),
		InterviewEndTime:  interviewEnd.UnixMilli(),
		StartTime:         startedAt.UnixMilli(),
		EndTime:           endedAt.UnixMilli(),
		Duration:          int(endedAt.Sub(startedAt) / time.Minute),
	}
}

func toTranscriptTurns(turns []Turn) []transcript.Turn {
	out := make([]transcript.Turn, 0, len(turns))
	for _, t := range turns {
		role := "assistant"
		if t.Speaker == SpeakerCandidate {
			role = "user"
		}
		out = append(out, transcript.Turn{
			Role:      role,
			Content:   t.Text,
			Timestamp: t.At.UnixMilli(),
		})
	}
	return out
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
