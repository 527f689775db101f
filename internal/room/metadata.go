package room

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/prepdeck/prepdeck/internal/interviewer"
)

// Metadata is the payload attached to a room at creation time so the agent
// side can configure itself after connecting.
type Metadata struct {
	InterviewerID string              `json:"interviewerId"`
	UserProfile   interviewer.Profile `json:"userProfile"`
	Duration      int                 `json:"duration"`
	StartTime     int64               `json:"startTime"`
}

// Config is a fully resolved session configuration plus the names of fields
// that had to be defaulted.
type Config struct {
	InterviewerID   string
	Profile         interviewer.Profile
	DurationMinutes int

	AppliedDefaults []string
}

// ParseMetadata resolves raw room metadata into a Config. Malformed or
// partial metadata never fails a session: missing fields fall back to
// defaults and the full set of applied defaults is reported (and expected to
// be logged exactly once by the caller).
func ParseMetadata(raw string, defaultDuration int) Config {
	cfg := Config{
		InterviewerID:   "frontend",
		Profile:         interviewer.DefaultProfile(),
		DurationMinutes: defaultDuration,
	}

	if strings.TrimSpace(raw) == "" {
		cfg.AppliedDefaults = []string{"interviewerId", "userProfile", "duration"}
		return cfg
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		log.Printf("room metadata unparseable, using defaults: %v", err)
		cfg.AppliedDefaults = []string{"interviewerId", "userProfile", "duration"}
		return cfg
	}

	if strings.TrimSpace(meta.InterviewerID) != "" {
		cfg.InterviewerID = meta.InterviewerID
	} else {
		cfg.AppliedDefaults = append(cfg.AppliedDefaults, "interviewerId")
	}
	if strings.TrimSpace(meta.UserProfile.Name) != "" {
		cfg.Profile = meta.UserProfile
	} else {
		cfg.AppliedDefaults = append(cfg.AppliedDefaults, "userProfile")
	}
	if meta.Duration > 0 {
		cfg.DurationMinutes = meta.Duration
	} else {
		cfg.AppliedDefaults = append(cfg.AppliedDefaults, "duration")
	}

	return cfg
}
