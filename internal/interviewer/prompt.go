package interviewer

import (
	"fmt"
	"strings"
)

// SystemPrompt assembles the full instruction block for one session: persona
// prompt, candidate profile, and the internal time-management guidance for the
// configured duration.
func SystemPrompt(p Persona, profile Profile, durationMinutes int) string {
	return p.SystemPrompt + "\n\n" + FormatProfile(profile) + TimeContext(durationMinutes)
}

// TimeContext renders the internal pacing guidance. The interviewer manages
// the clock silently; nothing here may ever be spoken to the candidate.
func TimeContext(durationMinutes int) string {
	wrapUp := durationMinutes * 8 / 10
	observations := "2-3"
	if durationMinutes <= 5 {
		observations = "1-2"
	}

	var b strings.Builder
	b.WriteString("\n\n## INTERVIEW TIME MANAGEMENT (INTERNAL - DO NOT MENTION TO CANDIDATE)\n\n")
	fmt.Fprintf(&b, "This interview is %d minutes total. You must manage time SILENTLY.\n\n", durationMinutes)
	b.WriteString("**CRITICAL RULES:**\n")
	b.WriteString("- NEVER mention time remaining to the candidate\n")
	b.WriteString("- NEVER say \"we have X minutes left\" or \"we're running out of time\"\n")
	b.WriteString("- Track time mentally and pace yourself internally\n")
	b.WriteString("- Naturally transition to conclusion without referencing time\n\n")
	fmt.Fprintf(&b, "**Pacing (internal guidance):**\n%s\n\n", pacingGuidance(durationMinutes))
	b.WriteString("**When to wrap up:**\n")
	fmt.Fprintf(&b, "- After approximately %d minutes, begin your final question\n", wrapUp)
	b.WriteString("- After the candidate answers, smoothly transition to feedback\n")
	fmt.Fprintf(&b, "- Provide %s key observations (strengths and areas to improve)\n", observations)
	b.WriteString("- End naturally with: \"That wraps up our interview. Thank you for your time!\"\n\n")
	if durationMinutes <= 5 {
		b.WriteString("VERY SHORT INTERVIEW: Keep questions extremely brief. Move quickly but naturally to conclusion.\n\n")
	}
	b.WriteString("**Remember:** The candidate should NOT be aware of time constraints. Make the interview feel natural and unhurried, but end on time.")
	return b.String()
}

func pacingGuidance(durationMinutes int) string {
	switch durationMinutes {
	case 1:
		return "1 min: Ask ONE quick question, then immediately provide brief feedback and end"
	case 2:
		return "2 min: Ask 1-2 very quick questions, wrap up at 1.5 min with brief feedback"
	case 5:
		return "5 min: Ask 2-3 quick questions, wrap up at 4 min with concise feedback"
	case 15:
		return "15 min: 2-3 questions focusing on fundamentals"
	case 30:
		return "30 min: 4-6 questions with balanced depth"
	case 45:
		return "45 min: 6-8 questions with deep exploration"
	default:
		return fmt.Sprintf("%d min: Adjust question count and depth accordingly", durationMinutes)
	}
}
