package app

import (
	"context"

	"camembert-game-service/internal/domain"
)

// Gateway is the persistence port the game core reads from and writes to.
// Postgres implements it for real deployments; the memory implementation
// backs tests and demo mode.
type Gateway interface {
	GetSession(ctx context.Context, sessionID int64) (domain.Session, error)
	SetSessionStatus(ctx context.Context, sessionID int64, status domain.Status) error

	CountLinkedQuestions(ctx context.Context, sessionID int64) (int, error)
	// NextUnservedQuestion returns the lowest-order question of the given
	// category linked to the session whose id is not in served, or
	// domain.ErrQuestionNotFound when that category is exhausted.
	NextUnservedQuestion(ctx context.Context, sessionID int64, category domain.Category, served []int64) (domain.Question, error)
	GetQuestion(ctx context.Context, questionID int64) (domain.Question, error)

	GetGroup(ctx context.Context, groupID int64) (domain.Group, error)
	ListGroups(ctx context.Context, sessionID int64) ([]domain.Group, error)
	SetGroupJoinCode(ctx context.Context, groupID int64, code string) error

	GetProgress(ctx context.Context, groupID int64) (domain.Camembert, error)
	// AdjustProgress applies delta to the group's counter for the category,
	// clamped at zero, and returns the resulting counters.
	AdjustProgress(ctx context.Context, groupID int64, category domain.Category, delta int) (domain.Camembert, error)
	ProgressSnapshot(ctx context.Context, sessionID int64) ([]domain.GroupProgress, error)
	ResetProgress(ctx context.Context, sessionID int64) error
}

// Broadcaster fans a typed event out to every connection in a session room.
// Delivery is fire-and-forget; slow members must not block the caller.
type Broadcaster interface {
	Emit(sessionID int64, event string, payload any)
}
