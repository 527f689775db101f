package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockAdapter provides deterministic local replies when no API key is
// configured. JSON-mode requests get a fixed, schema-shaped evaluation so the
// feedback path works end to end in dev.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) Complete(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}

	if req.ForceJSON {
		return Response{Text: mockFeedbackJSON}, nil
	}

	base := strings.TrimSpace(req.UserPrompt)
	if base == "" {
		base = "I am listening."
	}
	return Response{Text: fmt.Sprintf("Noted: %s", base)}, nil
}

const mockFeedbackJSON = `{
  "overallScore": 7,
  "overallGrade": "Good",
  "categoryScores": {
    "technicalKnowledge": {"score": 7, "reasoning": "Solid grasp of core concepts with a few gaps in edge cases."},
    "problemSolving": {"score": 7, "reasoning": "Worked through problems methodically and asked clarifying questions."},
    "communication": {"score": 8, "reasoning": "Explanations were clear and well structured."},
    "depthOfUnderstanding": {"score": 6, "reasoning": "Comfortable at the surface but shallower on internals."},
    "realWorldExperience": {"score": 7, "reasoning": "Referenced concrete production scenarios."},
    "clarityOfExplanation": {"score": 8, "reasoning": "Used examples effectively to ground abstract answers."}
  },
  "strengths": [
    "Clear communication under pressure",
    "Structured approach to unfamiliar problems",
    "Concrete production experience"
  ],
  "areasForImprovement": [
    "Deepen knowledge of system internals",
    "Discuss trade-offs before committing to a design",
    "Quantify impact when describing past work"
  ],
  "detailedAnalysis": "The candidate communicated clearly and handled the interview with composure. Technical answers were correct on fundamentals, though follow-up probes revealed room to grow on internals and trade-off analysis. Overall a solid performance consistent with the stated experience level.",
  "recommendations": [
    "Study the internals of one system you use daily and be ready to explain them",
    "Practice articulating design trade-offs out loud",
    "Prepare two or three quantified impact stories"
  ]
}`
