package app

import (
	"time"

	"camembert-game-service/internal/domain"
)

// Broadcast event names. These are wire contract: connected clients key off
// them, so they never change spelling.
const (
	EventStartGame               = "startGame"
	EventNewQuestion             = "newQuestion"
	EventAnswerSubmitted         = "answerSubmitted"
	EventTimerStopped            = "timerStopped"
	EventAnswerValidated         = "answerValidated"
	EventAnswerValidatedNoPoints = "answerValidatedNoPoints"
	EventCamembertUpdated        = "camembertUpdated"
	EventRevealAnswer            = "revealAnswer"
	EventGameOver                = "gameOver"
)

// NewQuestionPayload announces the active question and starts client
// countdowns.
type NewQuestionPayload struct {
	Question       domain.Question `json:"question"`
	Timer          int             `json:"timer"`
	QuestionIndex  int             `json:"questionIndex"`
	TotalQuestions int             `json:"totalQuestions"`
}

// AnswerSubmittedPayload relays a player answer to the whole room without
// any correctness judgment.
type AnswerSubmittedPayload struct {
	GroupID       int64     `json:"groupId"`
	GroupName     string    `json:"groupName"`
	Answer        string    `json:"answer"`
	StoppedTimer  bool      `json:"stoppedTimer"`
	TimeSubmitted time.Time `json:"timeSubmitted"`
}

// TimerStoppedPayload tells clients to zero their countdown.
type TimerStoppedPayload struct {
	GroupID   int64  `json:"groupId"`
	GroupName string `json:"groupName"`
}

// AnswerValidatedPayload carries the moderator's judgment and a
// human-readable line for activity feeds.
type AnswerValidatedPayload struct {
	GroupID       int64  `json:"groupId"`
	GroupName     string `json:"groupName"`
	IsCorrect     bool   `json:"isCorrect"`
	CorrectAnswer string `json:"correctAnswer"`
	Message       string `json:"message"`
}

// CamembertUpdatedPayload is the full progress snapshot after any scoring
// mutation.
type CamembertUpdatedPayload struct {
	UpdatedCamemberts []domain.GroupProgress `json:"updatedCamemberts"`
}

// GameOverPayload is the terminal event.
type GameOverPayload struct {
	Winners []domain.Winner `json:"winners"`
	IsTie   bool            `json:"isTie"`
}
