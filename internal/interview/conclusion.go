package interview

import (
	"fmt"
	"time"
)

// ConclusionText renders the fixed closing statement spoken when the
// interview budget runs out. Short sessions get the abbreviated phrasing.
// The statement is parameterized only by the candidate's name and must never
// reference elapsed or remaining time.
func ConclusionText(candidateName string, deadline time.Duration) string {
	if deadline <= 2*time.Minute {
		return fmt.Sprintf("Thank you for your time, %s. You showed good technical understanding. Keep practicing and best of luck!", candidateName)
	}
	return fmt.Sprintf("Thank you for your time, %s. You demonstrated solid problem-solving skills and technical knowledge. I recommend continuing to build projects and deepen your understanding. Best of luck with your career!", candidateName)
}
