package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prepdeck/prepdeck/internal/interview"
	"github.com/prepdeck/prepdeck/internal/interviewer"
	"github.com/prepdeck/prepdeck/internal/protocol"
	"github.com/prepdeck/prepdeck/internal/room"
)

// handleSessionWS is the agent-side session channel. One connection drives
// one interview: inbound frames carry the two redundant turn captures plus
// lifecycle controls, outbound frames carry the closing statement and the
// session end notification.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimSpace(r.URL.Query().Get("room_id"))
	if roomID == "" {
		respondError(w, http.StatusBadRequest, "missing_room_id", "query parameter room_id is required")
		return
	}

	// Session policy travels in the same metadata document that rides on the
	// room token, so a malformed payload degrades to defaults instead of
	// refusing the connection.
	md := s.parseSessionMetadata(roomID, r.URL.Query().Get("metadata"))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)

	ctrl, err := s.sessions.Start(roomID, interview.ControllerConfig{
		Deadline:      time.Duration(md.DurationMinutes) * time.Minute,
		Grace:         time.Duration(s.cfg.ConclusionGraceSeconds) * time.Second,
		Heartbeat:     s.cfg.HeartbeatInterval,
		DedupeWindow:  s.cfg.DedupeWindow,
		CandidateName: md.Profile.Name,
	}, interview.Outputs{
		Say: func(_ context.Context, text string) error {
			select {
			case outbound <- protocol.AgentSay{Type: protocol.TypeAgentSay, RoomID: roomID, Text: text, Final: true}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
		Terminate: func(reason string) {
			select {
			case outbound <- protocol.SessionEnded{Type: protocol.TypeSessionEnded, RoomID: roomID, Reason: reason}:
			default:
			}
			cancel()
		},
		Heartbeat: func(elapsed time.Duration, phase interview.Phase) {
			hb := protocol.SessionHeartbeat{
				Type:       protocol.TypeSessionHeartbeat,
				RoomID:     roomID,
				ElapsedSec: int64(elapsed.Seconds()),
				Phase:      phase.String(),
			}
			select {
			case outbound <- hb:
			default:
				// A stalled client misses a tick rather than blocking the timer.
			}
		},
	})
	if err != nil {
		s.metrics.SessionEvents.WithLabelValues("rejected").Inc()
		_ = conn.WriteJSON(protocol.ErrorEvent{
			Type:   protocol.TypeErrorEvent,
			RoomID: roomID,
			Code:   "session_already_active",
			Detail: err.Error(),
		})
		return
	}

	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("started").Inc()

	// The interviewer opens the conversation.
	persona := s.registry.ByID(md.InterviewerID)
	outbound <- protocol.AgentSay{
		Type:   protocol.TypeAgentSay,
		RoomID: roomID,
		Text:   interviewer.Greeting(persona, md.Profile),
		Final:  true,
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				// Drain anything the terminate path queued before cancel.
				for {
					select {
					case msg := <-outbound:
						_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
						_ = conn.WriteJSON(msg)
					default:
						return
					}
				}
			case msg := <-outbound:
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	conn.SetReadLimit(1 << 20)
	s.readSessionLoop(ctx, conn, roomID, ctrl, outbound)

	// End is idempotent: if a control frame or timer already closed the
	// session this is a no-op, otherwise the disconnect persists the
	// transcript.
	switch err := s.sessions.End(context.Background(), roomID, "client_disconnect"); {
	case err == nil:
		s.metrics.TranscriptSaves.WithLabelValues("session", "ok").Inc()
	case errors.Is(err, interview.ErrNotFound):
	default:
		log.Printf("ws %s: end after disconnect failed: %v", roomID, err)
		s.metrics.TranscriptSaves.WithLabelValues("session", "error").Inc()
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("disconnected").Inc()

	cancel()
	<-writerDone
}

func (s *Server) readSessionLoop(ctx context.Context, conn *websocket.Conn, roomID string, ctrl *interview.Controller, outbound chan<- any) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			errEvent := protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				RoomID: roomID,
				Code:   "invalid_client_message",
				Detail: err.Error(),
			}
			select {
			case outbound <- errEvent:
			default:
				// Writes stay single-threaded; drop if the queue is full.
			}
			continue
		}

		switch msg := parsed.(type) {
		case protocol.ConversationItem:
			speaker := interview.SpeakerInterviewer
			if msg.Role == "user" {
				speaker = interview.SpeakerCandidate
			}
			s.recordTurn(ctrl, speaker, msg.Text, msg.TSMs, interview.ChannelConversationItem)
		case protocol.UserTranscribed:
			if !msg.Final {
				continue
			}
			s.recordTurn(ctrl, interview.SpeakerCandidate, msg.Text, msg.TSMs, interview.ChannelTranscription)
		case protocol.SessionControl:
			switch msg.Action {
			case protocol.ActionUserTurnCompleted:
				ctrl.UserTurnCompleted(ctx)
			case protocol.ActionEnd:
				reason := msg.Reason
				if reason == "" {
					reason = "client_request"
				}
				if err := s.sessions.End(ctx, roomID, reason); err != nil {
					log.Printf("ws %s: end failed: %v", roomID, err)
				}
				return
			}
		}
	}
}

func (s *Server) recordTurn(ctrl *interview.Controller, speaker interview.Speaker, text string, tsMs int64, channel interview.CaptureChannel) {
	var at time.Time
	if tsMs > 0 {
		at = time.UnixMilli(tsMs)
	}
	outcome := "recorded"
	if !ctrl.RecordTurn(speaker, text, at, channel) {
		outcome = "suppressed"
	}
	s.metrics.TurnEvents.WithLabelValues(string(channel), outcome).Inc()
}

// parseSessionMetadata resolves the session policy and logs any defaults that
// had to be applied, once per session.
func (s *Server) parseSessionMetadata(roomID, raw string) room.Config {
	cfg := room.ParseMetadata(raw, s.cfg.DefaultInterviewMinutes)
	if len(cfg.AppliedDefaults) > 0 {
		log.Printf("ws %s: metadata defaults applied: %s", roomID, strings.Join(cfg.AppliedDefaults, ", "))
	}
	return cfg
}
