package interviewer

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Persona describes one interviewer character: who they are, how they greet,
// and the system prompt that drives their conversation style.
type Persona struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Role             string   `json:"role"`
	Expertise        []string `json:"expertise"`
	SystemPrompt     string   `json:"-"`
	GreetingTemplate string   `json:"-"`
	InterviewStyle   string   `json:"interviewStyle"`
	Duration         int      `json:"duration"`
	Phases           []string `json:"phases"`
}

// Profile is the candidate profile attached to a session.
type Profile struct {
	Name             string   `json:"name"`
	Experience       string   `json:"experience"`
	Skills           []string `json:"skills"`
	TargetRole       string   `json:"targetRole"`
	Duration         int      `json:"duration,omitempty"`
	ResumeHighlights string   `json:"resumeHighlights,omitempty"`
	GitHub           string   `json:"github,omitempty"`
	Portfolio        string   `json:"portfolio,omitempty"`
}

// Registry holds the available interviewer personas.
type Registry struct {
	personas []Persona
	byID     map[string]int
}

var promptFiles = map[string]string{
	"frontend":      "frontend_engineering_interviewer.md",
	"backend":       "backend_engineering_interviewer.md",
	"system-design": "system_design_interviewer.md",
	"algorithms":    "algorithms_dsa_interviewer.md",
	"devops":        "devops_infrastructure_interviewer.md",
	"ml":            "machine_learning_interviewer.md",
	"mobile":        "mobile_development_interviewer.md",
	"security":      "security_engineering_interviewer.md",
}

// NewRegistry builds the persona set, loading system prompts from markdown
// files under promptsDir. A missing prompt file falls back to a generic prompt
// for that persona rather than failing startup.
func NewRegistry(promptsDir string) *Registry {
	personas := builtinPersonas()
	for i := range personas {
		p := &personas[i]
		filename, ok := promptFiles[p.ID]
		if !ok {
			p.SystemPrompt = fallbackPrompt(p)
			continue
		}
		data, err := os.ReadFile(filepath.Join(promptsDir, filename))
		if err != nil {
			log.Printf("persona %s: prompt file unavailable, using fallback: %v", p.ID, err)
			p.SystemPrompt = fallbackPrompt(p)
			continue
		}
		p.SystemPrompt = string(data)
	}

	byID := make(map[string]int, len(personas))
	for i, p := range personas {
		byID[p.ID] = i
	}
	return &Registry{personas: personas, byID: byID}
}

// ByID returns the persona for id, falling back to the frontend interviewer
// for unknown ids.
func (r *Registry) ByID(id string) Persona {
	if i, ok := r.byID[strings.TrimSpace(id)]; ok {
		return r.personas[i]
	}
	log.Printf("interviewer %q not found, using %s as default", id, r.personas[0].ID)
	return r.personas[0]
}

// Has reports whether id names a known persona.
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[strings.TrimSpace(id)]
	return ok
}

// All returns every persona in registration order.
func (r *Registry) All() []Persona {
	out := make([]Persona, len(r.personas))
	copy(out, r.personas)
	return out
}

// Greeting renders the persona's greeting template for a candidate.
func Greeting(p Persona, profile Profile) string {
	skills := profile.Skills
	if len(skills) > 3 {
		skills = skills[:3]
	}
	g := p.GreetingTemplate
	g = strings.Replace(g, "{name}", profile.Name, 1)
	g = strings.Replace(g, "{experience}", profile.Experience, 1)
	g = strings.Replace(g, "{skills}", strings.Join(skills, ", "), 1)
	return g
}

// FormatProfile renders the candidate profile block appended to the system
// prompt.
func FormatProfile(profile Profile) string {
	var b strings.Builder
	b.WriteString("\n## Candidate Profile\n")
	fmt.Fprintf(&b, "- **Name:** %s\n", profile.Name)
	fmt.Fprintf(&b, "- **Experience:** %s\n", profile.Experience)
	fmt.Fprintf(&b, "- **Skills:** %s\n", strings.Join(profile.Skills, ", "))
	fmt.Fprintf(&b, "- **Target Role:** %s\n", profile.TargetRole)
	if profile.ResumeHighlights != "" {
		fmt.Fprintf(&b, "- **Highlights:** %s\n", profile.ResumeHighlights)
	}
	if profile.GitHub != "" {
		fmt.Fprintf(&b, "- **GitHub:** %s\n", profile.GitHub)
	}
	if profile.Portfolio != "" {
		fmt.Fprintf(&b, "- **Portfolio:** %s\n", profile.Portfolio)
	}
	return b.String()
}

// DefaultProfile is the built-in candidate used when a session starts without
// one.
func DefaultProfile() Profile {
	return Profile{
		Name:             "Alex Johnson",
		Experience:       "4 years",
		Skills:           []string{"React", "TypeScript", "Node.js", "PostgreSQL"},
		TargetRole:       "Senior Software Engineer",
		ResumeHighlights: "Built scalable applications serving 1M+ users",
		GitHub:           "github.com/alexj",
		Portfolio:        "alexjohnson.dev",
	}
}

func fallbackPrompt(p *Persona) string {
	return fmt.Sprintf("You are a %s. Conduct a professional technical interview.", p.Name)
}

func builtinPersonas() []Persona {
	return []Persona{
		{
			ID:               "frontend",
			Name:             "Frontend Engineering Interviewer",
			Role:             "Senior Frontend Engineer with 8+ years",
			Expertise:        []string{"React/Vue/Angular", "Web Vitals", "Accessibility", "Security"},
			GreetingTemplate: "Hello {name}. I'm conducting your frontend engineering interview today. I see you have {experience} of experience with {skills}. We'll be focusing on React, accessibility, and performance. Let's begin with component implementation. Ready?",
			InterviewStyle:   "Detail-oriented, user-focused, zero tolerance for accessibility violations",
			Duration:         45,
			Phases:           []string{"Component Implementation", "Optimization & Accessibility", "Advanced Patterns"},
		},
		{
			ID:               "backend",
			Name:             "Backend Engineering Interviewer",
			Role:             "Senior Backend Engineer with 10+ years",
			Expertise:        []string{"RESTful APIs", "Database Optimization", "Auth Patterns", "Microservices"},
			GreetingTemplate: "Hello {name}. I'm your backend engineering interviewer. With {experience} of experience in {skills}, let's dive into API design and database architecture. We'll start with REST fundamentals. Ready to begin?",
			InterviewStyle:   "Production-focused, pragmatic, zero tolerance for security vulnerabilities",
			Duration:         45,
			Phases:           []string{"API Design", "Implementation & Database", "Production Concerns", "System Integration"},
		},
		{
			ID:               "system-design",
			Name:             "System Design Interviewer",
			Role:             "Principal Engineer with 12+ years",
			Expertise:        []string{"Distributed Systems", "Scalability", "Architecture", "Trade-offs"},
			GreetingTemplate: "Hello {name}. I'll be conducting your system design interview. Given your {experience} background in {skills}, we'll explore scalable architecture design. Let's start with requirements gathering. Ready?",
			InterviewStyle:   "Architecture-focused, trade-off analysis, scalability-oriented",
			Duration:         60,
			Phases:           []string{"Requirements", "High-Level Design", "Deep Dive", "Bottlenecks & Trade-offs"},
		},
		{
			ID:               "algorithms",
			Name:             "Algorithms & DSA Interviewer",
			Role:             "Staff Engineer with competitive programming background",
			Expertise:        []string{"Data Structures", "Algorithms", "Complexity Analysis", "Problem Solving"},
			GreetingTemplate: "Hello {name}. I'm your algorithms interviewer today. With {experience} in {skills}, let's test your problem-solving skills. We'll cover data structures and algorithmic thinking. Ready for the first problem?",
			InterviewStyle:   "Problem-solving focused, expects optimal solutions, time/space complexity analysis",
			Duration:         45,
			Phases:           []string{"Easy Warm-up", "Medium Complexity", "Hard Challenge"},
		},
		{
			ID:               "devops",
			Name:             "DevOps & Infrastructure Interviewer",
			Role:             "Senior DevOps Engineer with 9+ years",
			Expertise:        []string{"CI/CD", "Kubernetes", "Cloud Infrastructure", "Monitoring"},
			GreetingTemplate: "Hello {name}. I'm conducting your DevOps interview. With {experience} working with {skills}, we'll discuss infrastructure, deployment pipelines, and reliability. Let's start with CI/CD practices. Ready?",
			InterviewStyle:   "Infrastructure-focused, automation-oriented, reliability-first",
			Duration:         45,
			Phases:           []string{"CI/CD Fundamentals", "Container Orchestration", "Monitoring & Observability"},
		},
		{
			ID:               "ml",
			Name:             "Machine Learning Interviewer",
			Role:             "ML Engineer with 7+ years in production ML",
			Expertise:        []string{"Deep Learning", "Model Training", "MLOps", "Feature Engineering"},
			GreetingTemplate: "Hello {name}. I'm your machine learning interviewer. Given your {experience} with {skills}, we'll explore model design, training, and deployment. Let's begin with ML fundamentals. Ready?",
			InterviewStyle:   "Model-focused, production ML oriented, expects mathematical rigor",
			Duration:         50,
			Phases:           []string{"ML Fundamentals", "Model Design", "Training & Evaluation", "Production ML"},
		},
		{
			ID:               "mobile",
			Name:             "Mobile Development Interviewer",
			Role:             "Senior Mobile Engineer with 8+ years",
			Expertise:        []string{"iOS/Android", "React Native", "Performance", "Mobile UX"},
			GreetingTemplate: "Hello {name}. I'm conducting your mobile development interview. With {experience} in {skills}, we'll cover mobile architecture, performance, and platform-specific challenges. Ready to start?",
			InterviewStyle:   "Platform-focused, performance-critical, UX-oriented",
			Duration:         45,
			Phases:           []string{"Mobile Fundamentals", "Architecture Patterns", "Performance Optimization"},
		},
		{
			ID:               "security",
			Name:             "Security Engineering Interviewer",
			Role:             "Security Engineer with 10+ years",
			Expertise:        []string{"Application Security", "Penetration Testing", "Threat Modeling", "Cryptography"},
			GreetingTemplate: "Hello {name}. I'm your security engineering interviewer. With {experience} in {skills}, we'll assess your security knowledge and threat modeling skills. Let's begin with security fundamentals. Ready?",
			InterviewStyle:   "Security-first, threat-focused, expects defense-in-depth thinking",
			Duration:         45,
			Phases:           []string{"Security Fundamentals", "Threat Modeling", "Secure Architecture"},
		},
	}
}
