package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/prepdeck/prepdeck/internal/interviewer"
	"github.com/prepdeck/prepdeck/internal/llm"
	"github.com/prepdeck/prepdeck/internal/transcript"
)

// ErrTranscriptNotFound is returned when feedback is requested for a room
// that never persisted a transcript.
var ErrTranscriptNotFound = errors.New("transcript not found")

// GenerationError wraps failures of the external evaluation call, including
// unparseable or schema-violating model output. Generation is never retried
// automatically; callers may re-request.
type GenerationError struct {
	RoomID string
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate feedback for %s: %v", e.RoomID, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Request identifies the session to evaluate.
type Request struct {
	RoomID        string
	InterviewerID string
	Profile       interviewer.Profile
}

// Generator turns stored transcripts into scored feedback reports.
type Generator struct {
	store   transcript.Store
	adapter llm.Adapter
	model   string
	now     func() time.Time
}

func NewGenerator(store transcript.Store, adapter llm.Adapter, model string) *Generator {
	return &Generator{
		store:   store,
		adapter: adapter,
		model:   model,
		now:     time.Now,
	}
}

// Generate evaluates the interview portion of a stored transcript, persists
// the resulting report, and returns it. Regenerating overwrites the previous
// report for the same room.
func (g *Generator) Generate(ctx context.Context, req Request, persona interviewer.Persona) (transcript.FeedbackReport, error) {
	rec, err := g.store.GetTranscript(ctx, req.RoomID)
	if errors.Is(err, transcript.ErrNotFound) {
		return transcript.FeedbackReport{}, fmt.Errorf("%w: %s", ErrTranscriptNotFound, req.RoomID)
	}
	if err != nil {
		return transcript.FeedbackReport{}, fmt.Errorf("load transcript for %s: %w", req.RoomID, err)
	}

	turns := rec.InterviewMessages
	if len(turns) == 0 {
		turns = rec.Messages
	}
	log.Printf("feedback: analyzing %d interview turns for room %s", len(turns), req.RoomID)

	res, err := g.adapter.Complete(ctx, llm.Request{
		Model:        g.model,
		SystemPrompt: evaluatorSystemPrompt,
		UserPrompt:   buildPrompt(persona.Role, req.Profile, turns),
		ForceJSON:    true,
		Temperature:  0.7,
	})
	if err != nil {
		return transcript.FeedbackReport{}, &GenerationError{RoomID: req.RoomID, Err: err}
	}

	var parsed evaluation
	if err := json.Unmarshal([]byte(res.Text), &parsed); err != nil {
		return transcript.FeedbackReport{}, &GenerationError{RoomID: req.RoomID, Err: fmt.Errorf("unparseable model output: %w", err)}
	}
	if err := parsed.validate(); err != nil {
		return transcript.FeedbackReport{}, &GenerationError{RoomID: req.RoomID, Err: err}
	}

	report := transcript.FeedbackReport{
		RoomID:              req.RoomID,
		InterviewerID:       req.InterviewerID,
		CandidateName:       req.Profile.Name,
		Duration:            rec.Duration,
		CompletedAt:         g.now().UTC().Format(time.RFC3339),
		OverallScore:        parsed.OverallScore,
		OverallGrade:        parsed.OverallGrade,
		CategoryScores:      parsed.CategoryScores,
		Strengths:           parsed.Strengths,
		AreasForImprovement: parsed.AreasForImprovement,
		DetailedAnalysis:    parsed.DetailedAnalysis,
		Recommendations:     parsed.Recommendations,
		Transcript:          rec.Messages,
	}

	if err := g.store.SaveFeedback(ctx, report); err != nil {
		return transcript.FeedbackReport{}, fmt.Errorf("save feedback for %s: %w", req.RoomID, err)
	}

	log.Printf("feedback: room %s scored %d/10 (%s)", req.RoomID, report.OverallScore, report.OverallGrade)
	return report, nil
}

// Get returns a previously generated report.
func (g *Generator) Get(ctx context.Context, roomID string) (transcript.FeedbackReport, error) {
	return g.store.GetFeedback(ctx, roomID)
}

// evaluation is the model's JSON payload before it is promoted to a report.
type evaluation struct {
	OverallScore        int                       `json:"overallScore"`
	OverallGrade        string                    `json:"overallGrade"`
	CategoryScores      transcript.CategoryScores `json:"categoryScores"`
	Strengths           []string                  `json:"strengths"`
	AreasForImprovement []string                  `json:"areasForImprovement"`
	DetailedAnalysis    string                    `json:"detailedAnalysis"`
	Recommendations     []string                  `json:"recommendations"`
}

var validGrades = map[string]bool{
	"Excellent":         true,
	"Good":              true,
	"Fair":              true,
	"Needs Improvement": true,
}

func (e evaluation) validate() error {
	if e.OverallScore < 1 || e.OverallScore > 10 {
		return fmt.Errorf("overallScore %d out of range", e.OverallScore)
	}
	if !validGrades[e.OverallGrade] {
		return fmt.Errorf("invalid overallGrade %q", e.OverallGrade)
	}
	categories := []struct {
		name  string
		score transcript.CategoryScore
	}{
		{"technicalKnowledge", e.CategoryScores.TechnicalKnowledge},
		{"problemSolving", e.CategoryScores.ProblemSolving},
		{"communication", e.CategoryScores.Communication},
		{"depthOfUnderstanding", e.CategoryScores.DepthOfUnderstanding},
		{"realWorldExperience", e.CategoryScores.RealWorldExperience},
		{"clarityOfExplanation", e.CategoryScores.ClarityOfExplanation},
	}
	for _, c := range categories {
		if c.score.Score < 1 || c.score.Score > 10 {
			return fmt.Errorf("category %s score %d out of range", c.name, c.score.Score)
		}
		if c.score.Reasoning == "" {
			return fmt.Errorf("category %s missing reasoning", c.name)
		}
	}
	if len(e.Strengths) < 3 || len(e.Strengths) > 5 {
		return fmt.Errorf("strengths count %d, want 3-5", len(e.Strengths))
	}
	if len(e.AreasForImprovement) < 3 || len(e.AreasForImprovement) > 5 {
		return fmt.Errorf("areasForImprovement count %d, want 3-5", len(e.AreasForImprovement))
	}
	if len(e.Recommendations) == 0 {
		return fmt.Errorf("recommendations missing")
	}
	if e.DetailedAnalysis == "" {
		return fmt.Errorf("detailedAnalysis missing")
	}
	return nil
}
