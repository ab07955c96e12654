package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"camembert-game-service/internal/domain"
)

// GameService drives a session through its lifecycle: it sequences
// questions, relays answers, applies moderator judgments and fans out every
// state change through the broadcaster. It is the only entry point the
// transport layer talks to.
type GameService struct {
	gateway  Gateway
	hub      Broadcaster
	registry *Registry
	seq      *Sequencer
	scoring  *Scoring
	resolver *WinnerResolver
	now      func() time.Time
}

func NewGameService(gateway Gateway, hub Broadcaster, registry *Registry, rules Rules) *GameService {
	return &GameService{
		gateway:  gateway,
		hub:      hub,
		registry: registry,
		seq:      NewSequencer(gateway),
		scoring:  NewScoring(gateway, rules),
		resolver: NewWinnerResolver(gateway, rules),
		now:      time.Now,
	}
}

// Activate moves a Draft session to Activated and stamps a join code on
// every group so players can be handed a join reference.
func (s *GameService) Activate(ctx context.Context, sessionID int64) ([]domain.Group, error) {
	session, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Status.CanTransition(domain.StatusActivated) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, session.Status, domain.StatusActivated)
	}

	groups, err := s.gateway.ListGroups(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		code := generateJoinCode()
		if err := s.gateway.SetGroupJoinCode(ctx, groups[i].ID, code); err != nil {
			return nil, fmt.Errorf("set join code for group %d: %w", groups[i].ID, err)
		}
		groups[i].JoinCode = code
	}

	if err := s.gateway.SetSessionStatus(ctx, sessionID, domain.StatusActivated); err != nil {
		return nil, err
	}
	return groups, nil
}

// Start begins or resumes play. Valid only from Activated or InProgress; it
// initializes live state on first use, tells waiting players the game is on
// and serves the next question.
func (s *GameService) Start(ctx context.Context, sessionID int64) error {
	session, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.Status.CanTransition(domain.StatusInProgress) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, session.Status, domain.StatusInProgress)
	}
	if err := s.gateway.SetSessionStatus(ctx, sessionID, domain.StatusInProgress); err != nil {
		return err
	}

	st, err := s.registry.Ensure(ctx, sessionID)
	if err != nil {
		return err
	}
	s.hub.Emit(sessionID, EventStartGame, struct{}{})
	return s.serveNext(ctx, sessionID, st)
}

// Advance serves the next question of a running session, or ends the game
// when the sequence is exhausted.
func (s *GameService) Advance(ctx context.Context, sessionID int64) error {
	session, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != domain.StatusInProgress {
		return fmt.Errorf("%w: advance from %s", domain.ErrInvalidTransition, session.Status)
	}
	st, ok := s.registry.Get(sessionID)
	if !ok {
		return domain.ErrNoLiveState
	}
	return s.serveNext(ctx, sessionID, st)
}

func (s *GameService) serveNext(ctx context.Context, sessionID int64, st *LiveState) error {
	question, ordinal, total, err := s.seq.Next(ctx, st)
	if errors.Is(err, ErrNoMoreQuestions) {
		return s.finish(ctx, sessionID)
	}
	if err != nil {
		return err
	}

	s.hub.Emit(sessionID, EventNewQuestion, NewQuestionPayload{
		Question:       question,
		Timer:          question.AllocatedTime,
		QuestionIndex:  ordinal,
		TotalQuestions: total,
	})
	return nil
}

// End forces game over mid-play, resolving winners from whatever progress
// exists.
func (s *GameService) End(ctx context.Context, sessionID int64) error {
	session, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.Status.CanTransition(domain.StatusGameOver) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, session.Status, domain.StatusGameOver)
	}
	return s.finish(ctx, sessionID)
}

func (s *GameService) finish(ctx context.Context, sessionID int64) error {
	winners, err := s.resolver.Resolve(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.gateway.SetSessionStatus(ctx, sessionID, domain.StatusGameOver); err != nil {
		return err
	}
	s.registry.Discard(ctx, sessionID)
	s.hub.Emit(sessionID, EventGameOver, GameOverPayload{
		Winners: winners,
		IsTie:   len(winners) > 1,
	})
	return nil
}

// Reset returns the session to Draft, zeroes every group's counters and
// discards live state. Calling it on an already-reset session is a no-op
// with the same outcome.
func (s *GameService) Reset(ctx context.Context, sessionID int64) error {
	if _, err := s.gateway.GetSession(ctx, sessionID); err != nil {
		return err
	}
	if err := s.gateway.SetSessionStatus(ctx, sessionID, domain.StatusDraft); err != nil {
		return err
	}
	if err := s.gateway.ResetProgress(ctx, sessionID); err != nil {
		return err
	}
	s.registry.Discard(ctx, sessionID)
	return nil
}

// SubmitAnswer relays a player answer to the room. It carries no judgment;
// the moderator validates separately. A stopped timer additionally tells
// every client to zero its countdown.
func (s *GameService) SubmitAnswer(ctx context.Context, sub domain.AnswerSubmission) error {
	group, err := s.gateway.GetGroup(ctx, sub.GroupID)
	if err != nil {
		return err
	}
	submitted := sub.SubmittedAt
	if submitted.IsZero() {
		submitted = s.now()
	}

	s.hub.Emit(sub.SessionID, EventAnswerSubmitted, AnswerSubmittedPayload{
		GroupID:       group.ID,
		GroupName:     group.Name,
		Answer:        sub.Answer,
		StoppedTimer:  sub.StoppedTimer,
		TimeSubmitted: submitted,
	})
	if sub.StoppedTimer {
		s.hub.Emit(sub.SessionID, EventTimerStopped, TimerStoppedPayload{
			GroupID:   group.ID,
			GroupName: group.Name,
		})
	}
	return nil
}

// ValidateAnswer applies the moderator's judgment. With awardPoints the
// scoring engine mutates counters and the fresh snapshot is broadcast;
// without it only the judgment is announced, leaving scores to a later
// manual adjustment. Partial redistribution failures still broadcast the
// snapshot that was applied and are returned to the caller.
func (s *GameService) ValidateAnswer(ctx context.Context, sessionID, groupID, questionID int64, isCorrect, stoppedTimer, awardPoints bool) error {
	group, err := s.gateway.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	question, err := s.gateway.GetQuestion(ctx, questionID)
	if err != nil {
		return err
	}

	payload := AnswerValidatedPayload{
		GroupID:       group.ID,
		GroupName:     group.Name,
		IsCorrect:     isCorrect,
		CorrectAnswer: question.ExpectedAnswer,
		Message:       validationMessage(group.Name, isCorrect),
	}

	if !awardPoints {
		s.hub.Emit(sessionID, EventAnswerValidatedNoPoints, payload)
		return nil
	}

	snapshot, scoreErr := s.scoring.ApplyValidation(ctx, sessionID, groupID, questionID, isCorrect, stoppedTimer)
	var partial *PartialScoreError
	if scoreErr != nil && !errors.As(scoreErr, &partial) {
		return scoreErr
	}
	if partial != nil {
		log.Printf("game: session %d validation applied partially: %v", sessionID, partial)
	}

	s.hub.Emit(sessionID, EventAnswerValidated, payload)
	s.hub.Emit(sessionID, EventCamembertUpdated, CamembertUpdatedPayload{UpdatedCamemberts: snapshot})
	return scoreErr
}

// RevealAnswer announces the expected answer without judging anyone.
func (s *GameService) RevealAnswer(ctx context.Context, sessionID int64, answer string) error {
	if _, err := s.gateway.GetSession(ctx, sessionID); err != nil {
		return err
	}
	s.hub.Emit(sessionID, EventRevealAnswer, answer)
	return nil
}

// AdjustPoints applies a direct per-category delta for one group and
// broadcasts the resulting snapshot.
func (s *GameService) AdjustPoints(ctx context.Context, sessionID, groupID int64, category domain.Category, delta int) error {
	snapshot, err := s.scoring.AdjustManually(ctx, sessionID, groupID, category, delta)
	if err != nil {
		return err
	}
	s.hub.Emit(sessionID, EventCamembertUpdated, CamembertUpdatedPayload{UpdatedCamemberts: snapshot})
	return nil
}

func validationMessage(groupName string, isCorrect bool) string {
	if isCorrect {
		return groupName + " answered correctly!"
	}
	return groupName + " answered incorrectly."
}

func generateJoinCode() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%08x", time.Now().UnixNano()&0xffffffff)
	}
	return hex.EncodeToString(buf)
}
