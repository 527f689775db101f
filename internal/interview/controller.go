package interview

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/prepdeck/prepdeck/internal/transcript"
)

// Phase is the lifecycle state of one interview session.
type Phase int

const (
	// PhaseActive: accepting turns, deadline not yet reached.
	PhaseActive Phase = iota
	// PhaseDeadlineReached: time is up; the next completed user turn triggers
	// the closing statement.
	PhaseDeadlineReached
	// PhaseConcluded: the closing statement has been issued.
	PhaseConcluded
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseDeadlineReached:
		return "deadline_reached"
	case PhaseConcluded:
		return "concluded"
	default:
		return "unknown"
	}
}

// Outputs are the session-owned side effects the controller drives. Say
// delivers the closing statement through the session's speech channel;
// Terminate tears the session connection down. Heartbeat, when set, receives
// the periodic progress report in addition to the log line.
type Outputs struct {
	Say       func(ctx context.Context, text string) error
	Terminate func(reason string)
	Heartbeat func(elapsed time.Duration, phase Phase)
}

// ControllerConfig carries the per-session policy values.
type ControllerConfig struct {
	Deadline      time.Duration
	Grace         time.Duration
	Heartbeat     time.Duration
	DedupeWindow  time.Duration
	CandidateName string
}

// Controller drives one interview from start to persisted transcript. It
// enforces the wall-clock budget without ever revealing it to the candidate:
// a soft deadline flips the phase, the next completed user turn receives a
// fixed closing statement exactly once, and a hard stop persists and
// disconnects after a grace period sized for that statement to play out.
//
// All event callbacks (turns, timer firings, disconnect) mutate state under
// one mutex; the controller has no internal parallelism beyond the timers
// that deliver those callbacks.
type Controller struct {
	roomID   string
	cfg      ControllerConfig
	store    transcript.Store
	out      Outputs
	timeline *Timeline

	mu        sync.Mutex
	phase     Phase
	startedAt time.Time
	persisted bool
	ended     bool

	softTimer     *time.Timer
	hardTimer     *time.Timer
	heartbeatStop chan struct{}

	now func() time.Time
}

func NewController(roomID string, cfg ControllerConfig, store transcript.Store, out Outputs) *Controller {
	if cfg.Grace <= 0 {
		cfg.Grace = 45 * time.Second
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 10 * time.Second
	}
	return &Controller{
		roomID: roomID,
		cfg:    cfg,
		store:  store,
		out:    out,
		now:    time.Now,
	}
}

// Start initializes the timeline and schedules the soft deadline, the hard
// stop, and the progress heartbeat.
func (c *Controller) Start() {
	c.mu.Lock()
	c.startedAt = c.now()
	c.phase = PhaseActive
	c.timeline = NewTimeline(c.startedAt, c.cfg.DedupeWindow)
	c.heartbeatStop = make(chan struct{})
	c.softTimer = time.AfterFunc(c.cfg.Deadline, c.OnSoftDeadline)
	c.hardTimer = time.AfterFunc(c.cfg.Deadline+c.cfg.Grace, func() { c.OnHardStop(context.Background()) })
	stop := c.heartbeatStop
	c.mu.Unlock()

	log.Printf("interview %s: started, deadline %s, grace %s", c.roomID, c.cfg.Deadline, c.cfg.Grace)
	go c.runHeartbeat(stop)
}

// RecordTurn feeds one captured utterance into the timeline. Returns true
// when the turn was recorded (not suppressed as a duplicate).
func (c *Controller) RecordTurn(speaker Speaker, text string, at time.Time, channel CaptureChannel) bool {
	c.mu.Lock()
	tl := c.timeline
	ended := c.ended
	c.mu.Unlock()
	if tl == nil || ended {
		return false
	}
	if at.IsZero() {
		at = c.now()
	}
	return tl.Record(speaker, text, at, channel)
}

// OnSoftDeadline is the soft-deadline timer callback: time is up, but the
// conversation continues until the candidate finishes their current turn.
func (c *Controller) OnSoftDeadline() {
	c.mu.Lock()
	if c.phase != PhaseActive || c.ended {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseDeadlineReached
	crossedAt := c.now()
	c.timeline.MarkDeadline(crossedAt)
	c.mu.Unlock()

	log.Printf("interview %s: time limit reached (%s)", c.roomID, c.cfg.Deadline)
}

// UserTurnCompleted is invoked when the candidate finishes speaking. After
// the deadline it substitutes the fixed closing statement for the normal
// model response, at most once per session: the statement is tied to the
// DeadlineReached -> Concluded transition, so re-checking the boundary can
// never repeat it. Returns true when the closing statement was issued and
// the normal response pipeline must be skipped.
func (c *Controller) UserTurnCompleted(ctx context.Context) bool {
	c.mu.Lock()
	if c.phase != PhaseDeadlineReached || c.ended {
		c.mu.Unlock()
		return false
	}
	c.phase = PhaseConcluded
	c.mu.Unlock()

	text := ConclusionText(c.cfg.CandidateName, c.cfg.Deadline)
	log.Printf("interview %s: issuing conclusion", c.roomID)
	if c.out.Say != nil {
		if err := c.out.Say(ctx, text); err != nil {
			log.Printf("interview %s: conclusion delivery failed: %v", c.roomID, err)
		}
	}
	return true
}

// OnHardStop is the hard-stop timer callback. The transcript is persisted
// before the connection is torn down so buffered turns cannot be lost.
func (c *Controller) OnHardStop(ctx context.Context) {
	log.Printf("interview %s: hard stop", c.roomID)
	if err := c.End(ctx, "time_limit"); err != nil {
		log.Printf("interview %s: hard stop persistence failed: %v", c.roomID, err)
	}
}

// End handles any session termination, scheduled or not. It is idempotent
// and is the single safety net for persistence: if the transcript is not in
// the store yet, it is written now, before the connection is terminated.
// Persistence failures are logged and returned; the session still tears down.
func (c *Controller) End(ctx context.Context, reason string) error {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return nil
	}
	c.ended = true
	if c.softTimer != nil {
		c.softTimer.Stop()
	}
	if c.hardTimer != nil {
		c.hardTimer.Stop()
	}
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
	}
	c.mu.Unlock()

	log.Printf("interview %s: session ended (%s)", c.roomID, reason)

	err := c.ensurePersisted(ctx)

	if c.out.Terminate != nil {
		c.out.Terminate(reason)
	}
	return err
}

// Persisted reports whether this controller has written the transcript.
func (c *Controller) Persisted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persisted
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) ensurePersisted(ctx context.Context) error {
	c.mu.Lock()
	already := c.persisted
	tl := c.timeline
	c.mu.Unlock()
	if tl == nil {
		return nil
	}

	if !already {
		// The store is the source of truth: a controller restart or a racing
		// save path may have written the record without this instance knowing.
		exists, err := c.store.HasTranscript(ctx, c.roomID)
		if err != nil {
			log.Printf("interview %s: transcript existence check failed: %v", c.roomID, err)
		} else if exists {
			c.mu.Lock()
			c.persisted = true
			c.mu.Unlock()
			return nil
		}
	} else {
		return nil
	}

	record := tl.BuildRecord(c.roomID, c.now())
	if err := c.store.SaveTranscript(ctx, record); err != nil {
		log.Printf("interview %s: transcript save failed: %v", c.roomID, err)
		return fmt.Errorf("persist transcript for %s: %w", c.roomID, err)
	}

	c.mu.Lock()
	c.persisted = true
	c.mu.Unlock()
	log.Printf("interview %s: transcript saved (%d turns, %d interview / %d qna)",
		c.roomID, len(record.Messages), len(record.InterviewMessages), len(record.QnAMessages))
	return nil
}

// runHeartbeat reports elapsed/remaining time on every tick, to the log and
// to the Heartbeat output when one is wired. It stops on every exit path.
func (c *Controller) runHeartbeat(stop chan struct{}) {
	ticker := time.NewTicker(c.cfg.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			elapsed := c.now().Sub(c.startedAt)
			phase := c.phase
			c.mu.Unlock()
			remaining := c.cfg.Deadline - elapsed
			if remaining < 0 {
				remaining = 0
			}
			log.Printf("interview %s: %s elapsed, %s remaining",
				c.roomID, elapsed.Truncate(time.Second), remaining.Truncate(time.Second))
			if c.out.Heartbeat != nil {
				c.out.Heartbeat(elapsed, phase)
			}
		}
	}
}
