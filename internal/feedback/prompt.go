package feedback

import (
	"fmt"
	"strings"

	"github.com/prepdeck/prepdeck/internal/interviewer"
	"github.com/prepdeck/prepdeck/internal/policy"
	"github.com/prepdeck/prepdeck/internal/transcript"
)

const evaluatorSystemPrompt = "You are an expert interview evaluator. Analyze interviews and provide structured, constructive feedback in JSON format."

// buildPrompt renders the evaluation request for one interview. Only the
// interview portion of the conversation is included; post-interview Q&A must
// not influence scoring. Turn content is PII-redacted before it leaves the
// service.
func buildPrompt(interviewerRole string, profile interviewer.Profile, turns []transcript.Turn) string {
	var convo strings.Builder
	for i, turn := range turns {
		speaker := "Interviewer"
		if turn.Role == "user" {
			speaker = "Candidate"
		}
		if i > 0 {
			convo.WriteString("\n\n")
		}
		content, _ := policy.RedactPII(turn.Content)
		fmt.Fprintf(&convo, "%s: %s", speaker, content)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert interview evaluator analyzing a %s interview.\n\n", interviewerRole)
	b.WriteString("**Candidate Information:**\n")
	fmt.Fprintf(&b, "- Name: %s\n", profile.Name)
	fmt.Fprintf(&b, "- Experience: %s\n", profile.Experience)
	fmt.Fprintf(&b, "- Skills: %s\n", strings.Join(profile.Skills, ", "))
	fmt.Fprintf(&b, "- Target Role: %s\n\n", profile.TargetRole)
	b.WriteString("**Interview Transcript (Interview Portion Only):**\n")
	b.WriteString(convo.String())
	b.WriteString("\n\n**Note:** This transcript contains ONLY the interview portion (before the conclusion). Any questions asked during the Q&A phase after the interview are NOT included above and should NOT affect the evaluation.\n\n")
	b.WriteString("---\n\n")
	b.WriteString("**Your Task:**\nAnalyze this interview conversation and provide comprehensive, constructive feedback in JSON format.\n\n")
	b.WriteString(`**Scoring Guidelines:**
- 9-10: Exceptional - Expert-level knowledge, excellent communication
- 7-8: Strong - Solid understanding, good explanations
- 5-6: Adequate - Basic knowledge, room for improvement
- 3-4: Weak - Significant gaps, unclear explanations
- 1-2: Poor - Major deficiencies, unable to answer

**Output Format (MUST be valid JSON):**
{
    "overallScore": <number 1-10>,
    "overallGrade": "<Excellent|Good|Fair|Needs Improvement>",
    "categoryScores": {
        "technicalKnowledge": {"score": <number 1-10>, "reasoning": "<specific observations from the interview>"},
        "problemSolving": {"score": <number 1-10>, "reasoning": "<how they approached problems>"},
        "communication": {"score": <number 1-10>, "reasoning": "<clarity and effectiveness of explanations>"},
        "depthOfUnderstanding": {"score": <number 1-10>, "reasoning": "<beyond surface-level knowledge>"},
        "realWorldExperience": {"score": <number 1-10>, "reasoning": "<practical experience and examples>"},
        "clarityOfExplanation": {"score": <number 1-10>, "reasoning": "<ability to explain concepts clearly>"}
    },
    "strengths": ["<specific strength 1>", "<specific strength 2>", "<specific strength 3>"],
    "areasForImprovement": ["<specific area 1>", "<specific area 2>", "<specific area 3>"],
    "detailedAnalysis": "<2-3 paragraph summary of overall performance, highlighting key observations>",
    "recommendations": ["<actionable recommendation 1>", "<actionable recommendation 2>", "<actionable recommendation 3>"]
}

**Important:**
- Be specific and reference actual responses from the interview
- Be constructive and encouraging, not harsh
- Provide actionable recommendations
- Focus on growth opportunities
- Return ONLY valid JSON, no additional text`)
	return b.String()
}
