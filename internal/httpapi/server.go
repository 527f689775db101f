package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/prepdeck/prepdeck/internal/config"
	"github.com/prepdeck/prepdeck/internal/feedback"
	"github.com/prepdeck/prepdeck/internal/interview"
	"github.com/prepdeck/prepdeck/internal/interviewer"
	"github.com/prepdeck/prepdeck/internal/observability"
	"github.com/prepdeck/prepdeck/internal/room"
	"github.com/prepdeck/prepdeck/internal/transcript"
)

type Server struct {
	cfg       config.Config
	store     transcript.Store
	sessions  *interview.Manager
	registry  *interviewer.Registry
	tokens    *room.TokenService
	generator *feedback.Generator
	metrics   *observability.Metrics
	upgrader  websocket.Upgrader
	now       func() time.Time
}

func New(cfg config.Config, store transcript.Store, sessions *interview.Manager, registry *interviewer.Registry, tokens *room.TokenService, generator *feedback.Generator, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		sessions:  sessions,
		registry:  registry,
		tokens:    tokens,
		generator: generator,
		metrics:   metrics,
		now:       time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so another site cannot drive a candidate's
				// interview session.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/api/health", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/generate-token", s.handleGenerateToken)
	r.Post("/api/save-transcript", s.handleSaveTranscript)
	r.Post("/api/generate-feedback", s.handleGenerateFeedback)
	r.Get("/api/feedback/{roomID}", s.handleGetFeedback)
	r.Get("/api/interviewers", s.handleListInterviewers)
	r.Get("/api/session/ws", s.handleSessionWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

type tokenRequest struct {
	InterviewerID string               `json:"interviewerId"`
	UserProfile   *interviewer.Profile `json:"userProfile"`
	Duration      int                  `json:"duration"`
}

type tokenResponse struct {
	Token           string `json:"token"`
	URL             string `json:"url"`
	RoomName        string `json:"roomName"`
	ParticipantName string `json:"participantName"`
	InterviewerID   string `json:"interviewerId"`
}

func (s *Server) handleGenerateToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.InterviewerID) == "" {
		respondError(w, http.StatusBadRequest, "missing_interviewer", "interviewerId is required")
		return
	}
	if !s.cfg.SigningConfigured() {
		respondError(w, http.StatusServiceUnavailable, "livekit_not_configured", "room credentials are not configured")
		return
	}

	persona := s.registry.ByID(req.InterviewerID)
	profile := interviewer.DefaultProfile()
	if req.UserProfile != nil && strings.TrimSpace(req.UserProfile.Name) != "" {
		profile = *req.UserProfile
	}
	duration := req.Duration
	if duration <= 0 {
		duration = s.cfg.DefaultInterviewMinutes
	}

	meta, err := json.Marshal(room.Metadata{
		InterviewerID: persona.ID,
		UserProfile:   profile,
		Duration:      duration,
		StartTime:     s.now().UnixMilli(),
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "metadata_encoding_failed", err.Error())
		return
	}

	roomName := s.tokens.NewRoomName()
	identity := room.ParticipantIdentity(profile.Name)
	token, err := s.tokens.Mint(roomName, identity, profile.Name, string(meta))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "token_minting_failed", err.Error())
		return
	}

	s.metrics.TokensIssued.Inc()
	respondJSON(w, http.StatusOK, tokenResponse{
		Token:           token,
		URL:             s.tokens.URL(),
		RoomName:        roomName,
		ParticipantName: profile.Name,
		InterviewerID:   persona.ID,
	})
}

func (s *Server) handleSaveTranscript(w http.ResponseWriter, r *http.Request) {
	var rec transcript.Record
	if err := decodeJSON(r, &rec); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(rec.RoomID) == "" {
		respondError(w, http.StatusBadRequest, "missing_room_id", "roomId is required")
		return
	}
	if len(rec.Messages) == 0 {
		respondError(w, http.StatusBadRequest, "missing_messages", "messages are required")
		return
	}

	// Clients may send only the flat message list; derive the interview/Q&A
	// halves from the recorded boundary time so downstream consumers always
	// see the partition.
	if len(rec.InterviewMessages) == 0 && len(rec.QnAMessages) == 0 {
		splitRecord(&rec)
	}

	if err := s.store.SaveTranscript(r.Context(), rec); err != nil {
		s.metrics.TranscriptSaves.WithLabelValues("http", "error").Inc()
		respondError(w, http.StatusInternalServerError, "save_failed", err.Error())
		return
	}
	s.metrics.TranscriptSaves.WithLabelValues("http", "ok").Inc()
	if rec.Duration > 0 {
		s.metrics.ObserveInterviewDuration(time.Duration(rec.Duration) * time.Minute)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"roomId":  rec.RoomID,
	})
}

// splitRecord partitions rec.Messages on the interview end boundary. A turn
// timestamped strictly before the boundary is interview; everything else is
// Q&A. Without a boundary the whole conversation is interview.
func splitRecord(rec *transcript.Record) {
	if rec.InterviewEndTime <= 0 {
		rec.InterviewMessages = rec.Messages
		return
	}
	for _, msg := range rec.Messages {
		if msg.Timestamp < rec.InterviewEndTime {
			rec.InterviewMessages = append(rec.InterviewMessages, msg)
		} else {
			rec.QnAMessages = append(rec.QnAMessages, msg)
		}
	}
}

type feedbackRequest struct {
	RoomID        string               `json:"roomId"`
	InterviewerID string               `json:"interviewerId"`
	UserProfile   *interviewer.Profile `json:"userProfile"`
}

func (s *Server) handleGenerateFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.RoomID) == "" {
		respondError(w, http.StatusBadRequest, "missing_room_id", "roomId is required")
		return
	}
	if strings.TrimSpace(req.InterviewerID) == "" {
		respondError(w, http.StatusBadRequest, "missing_interviewer_id", "interviewerId is required")
		return
	}
	if req.UserProfile == nil {
		respondError(w, http.StatusBadRequest, "missing_user_profile", "userProfile is required")
		return
	}

	// Unknown ids still resolve to the frontend persona.
	persona := s.registry.ByID(req.InterviewerID)
	profile := *req.UserProfile
	if strings.TrimSpace(profile.Name) == "" {
		profile = interviewer.DefaultProfile()
	}

	report, err := s.generator.Generate(r.Context(), feedback.Request{
		RoomID:        req.RoomID,
		InterviewerID: persona.ID,
		Profile:       profile,
	}, persona)
	if err != nil {
		if errors.Is(err, feedback.ErrTranscriptNotFound) {
			s.metrics.FeedbackRequests.WithLabelValues("not_found").Inc()
			respondError(w, http.StatusNotFound, "transcript_not_found", err.Error())
			return
		}
		s.metrics.FeedbackRequests.WithLabelValues("error").Inc()
		respondError(w, http.StatusInternalServerError, "feedback_generation_failed", err.Error())
		return
	}

	s.metrics.FeedbackRequests.WithLabelValues("ok").Inc()
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetFeedback(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	report, err := s.generator.Get(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, transcript.ErrNotFound) {
			respondError(w, http.StatusNotFound, "feedback_not_found", "no feedback stored for room "+roomID)
			return
		}
		respondError(w, http.StatusInternalServerError, "feedback_lookup_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleListInterviewers(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"interviewers": s.registry.All(),
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
