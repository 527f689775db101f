package transcript

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("record not found")

// Turn is one utterance in an interview conversation. Role is "user" for the
// candidate and "assistant" for the interviewer; Timestamp is epoch
// milliseconds.
type Turn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Record is the durable projection of one finished interview session. It is
// written wholesale; there are no partial updates.
type Record struct {
	RoomID            string `json:"roomId"`
	Messages          []Turn `json:"messages"`
	InterviewMessages []Turn `json:"interviewMessages"`
	QnAMessages       []Turn `json:"qnaMessages"`
	InterviewEndTime  int64  `json:"interviewEndTime"`
	StartTime         int64  `json:"startTime"`
	EndTime           int64  `json:"endTime"`
	Duration          int    `json:"duration"`
}

// CategoryScore is one scored dimension of a feedback report.
type CategoryScore struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}

// CategoryScores holds the six fixed evaluation dimensions.
type CategoryScores struct {
	TechnicalKnowledge   CategoryScore `json:"technicalKnowledge"`
	ProblemSolving       CategoryScore `json:"problemSolving"`
	Communication        CategoryScore `json:"communication"`
	DepthOfUnderstanding CategoryScore `json:"depthOfUnderstanding"`
	RealWorldExperience  CategoryScore `json:"realWorldExperience"`
	ClarityOfExplanation CategoryScore `json:"clarityOfExplanation"`
}

// FeedbackReport is the scored evaluation derived from a transcript.
type FeedbackReport struct {
	RoomID              string         `json:"roomId"`
	InterviewerID       string         `json:"interviewerId"`
	CandidateName       string         `json:"candidateName"`
	Duration            int            `json:"duration"`
	CompletedAt         string         `json:"completedAt"`
	OverallScore        int            `json:"overallScore"`
	OverallGrade        string         `json:"overallGrade"`
	CategoryScores      CategoryScores `json:"categoryScores"`
	Strengths           []string       `json:"strengths"`
	AreasForImprovement []string       `json:"areasForImprovement"`
	DetailedAnalysis    string         `json:"detailedAnalysis"`
	Recommendations     []string       `json:"recommendations"`
	Transcript          []Turn         `json:"transcript"`
}

// Store persists transcripts and feedback reports keyed by room id. Saves
// overwrite and must be durable before returning; there is exactly one writer
// per room id by construction.
type Store interface {
	SaveTranscript(ctx context.Context, record Record) error
	GetTranscript(ctx context.Context, roomID string) (Record, error)
	HasTranscript(ctx context.Context, roomID string) (bool, error)

	SaveFeedback(ctx context.Context, report FeedbackReport) error
	GetFeedback(ctx context.Context, roomID string) (FeedbackReport, error)
	HasFeedback(ctx context.Context, roomID string) (bool, error)

	RoomIDs(ctx context.Context) ([]string, error)
	Close() error
}
