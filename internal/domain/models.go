package domain

import "time"

// Category is one of the two question classes a session plays with.
// Sessions relabel them for display but the wire values stay fixed.
type Category string

const (
	CategoryRed   Category = "red"
	CategoryGreen Category = "green"
)

// Valid reports whether c is one of the two known categories.
func (c Category) Valid() bool {
	return c == CategoryRed || c == CategoryGreen
}

// QuestionKind distinguishes how answers are collected.
type QuestionKind string

const (
	KindSingleChoice QuestionKind = "single-choice"
	KindFreeText     QuestionKind = "free-text"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusDraft      Status = "Draft"
	StatusActivated  Status = "Activated"
	StatusInProgress Status = "In Progress"
	StatusGameOver   Status = "Game Over"
)

// CanTransition reports whether moving from s to next is a legal lifecycle
// step. Reset (anything back to Draft) is always allowed.
func (s Status) CanTransition(next Status) bool {
	if next == StatusDraft {
		return true
	}
	switch next {
	case StatusActivated:
		return s == StatusDraft
	case StatusInProgress:
		return s == StatusActivated || s == StatusInProgress
	case StatusGameOver:
		return s == StatusInProgress
	}
	return false
}

// Session is one scheduled playthrough of a question set.
type Session struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Date       string    `json:"date"`
	RedLabel   string    `json:"redQuestionsLabel"`
	GreenLabel string    `json:"greenQuestionsLabel"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"-"`
}

// Question is reusable quiz content; Order is the per-session display order
// carried on the session_questions link.
type Question struct {
	ID             int64        `json:"id"`
	Category       Category     `json:"type"`
	Kind           QuestionKind `json:"kind"`
	Title          string       `json:"title"`
	ExpectedAnswer string       `json:"expected_answer"`
	AllocatedTime  int          `json:"allocated_time"` // seconds
	Options        []string     `json:"options,omitempty"`
	Order          int          `json:"question_order"`
}

// Group is a competing team within a session.
type Group struct {
	ID          int64  `json:"id"`
	SessionID   int64  `json:"sessionId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	AvatarName  string `json:"avatarName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	JoinCode    string `json:"joinCode,omitempty"`
}

// Camembert holds a group's wedge counters, one per category.
// Counters never go below zero.
type Camembert struct {
	Red   int `json:"red_triangles"`
	Green int `json:"green_triangles"`
}

// Count returns the counter for the given category.
func (c Camembert) Count(cat Category) int {
	if cat == CategoryRed {
		return c.Red
	}
	return c.Green
}

// GroupProgress is one entry of a session-wide scoring snapshot.
type GroupProgress struct {
	GroupID   int64  `json:"groupId"`
	GroupName string `json:"groupName"`
	Camembert
}

// Winner is one resolved game winner with its ranking metrics.
type Winner struct {
	GroupID      int64  `json:"groupId"`
	GroupName    string `json:"groupName"`
	CompleteSets int    `json:"completeSets"`
	Total        int    `json:"total"`
}

// AnswerSubmission is a player answer relayed to the moderator.
type AnswerSubmission struct {
	SessionID    int64     `json:"sessionId"`
	GroupID      int64     `json:"groupId"`
	QuestionID   int64     `json:"questionId"`
	Answer       string    `json:"answer"`
	StoppedTimer bool      `json:"stoppedTimer"`
	SubmittedAt  time.Time `json:"timeSubmitted"`
}
