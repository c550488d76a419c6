package models

import (
	"slices"
	"time"
)

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one chat history entry.
type Turn struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	Image      string `json:"image,omitempty"` // data URL of an attached image
	StepNumber int    `json:"step_number"`
	HasImage   bool   `json:"has_image"`
}

// Session is one interactive walkthrough of a recipe.
type Session struct {
	ID             string    `json:"session_id"`
	Recipe         Recipe    `json:"recipe"`
	CurrentStep    int       `json:"current_step"`
	CompletedSteps []int     `json:"completed_steps"`
	History        []Turn    `json:"chat_history"`
	CreatedAt      time.Time `json:"created_at"` // last activity; drives expiry
}

// TotalSteps is fixed at creation from the recipe snapshot.
func (s *Session) TotalSteps() int {
	return len(s.Recipe.Steps)
}

// IsCompleted reports whether step n has been marked done.
func (s *Session) IsCompleted(n int) bool {
	return slices.Contains(s.CompletedSteps, n)
}

// ProgressPercent is completed/total as an integer percentage, 0 when there are no steps.
func (s *Session) ProgressPercent() int {
	return ProgressPercent(len(s.CompletedSteps), s.TotalSteps())
}

// Clone returns a deep copy safe to hand out of a store.
func (s *Session) Clone() Session {
	c := *s
	c.CompletedSteps = slices.Clone(s.CompletedSteps)
	c.History = slices.Clone(s.History)
	c.Recipe.Steps = slices.Clone(s.Recipe.Steps)
	c.Recipe.Ingredients = slices.Clone(s.Recipe.Ingredients)
	c.Recipe.Tips = slices.Clone(s.Recipe.Tips)
	return c
}

// ProgressPercent computes completed/total as a percentage capped at 100.
func ProgressPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return min(100, completed*100/total)
}

// StepCompletion is the outcome of marking a step done.
type StepCompletion struct {
	StepNumber int  `json:"step_number"`
	NextStep   int  `json:"next_step"`
	IsFinished bool `json:"is_finished"`
}

// SessionSummary is returned when a session ends.
type SessionSummary struct {
	Recipe         string `json:"recipe"`
	CompletedSteps int    `json:"completed_steps"`
	TotalSteps     int    `json:"total_steps"`
	TotalMessages  int    `json:"total_messages"`
}
