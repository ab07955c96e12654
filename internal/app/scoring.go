package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"camembert-game-service/internal/domain"
)

// Rules are the tunable scoring constants.
type Rules struct {
	// BonusPoints is awarded instead of 1 when a correct answer came with a
	// stopped timer.
	BonusPoints int
	// WedgesPerCategory is how many wedges of each color complete one pie.
	WedgesPerCategory int
}

// DefaultRules matches the reference game: a 2-point confidence bonus and
// 4 wedges per color.
func DefaultRules() Rules {
	return Rules{BonusPoints: 2, WedgesPerCategory: 4}
}

// GroupScoreFailure records one group whose counter update failed during a
// batch mutation.
type GroupScoreFailure struct {
	GroupID int64
	Err     error
}

// PartialScoreError reports a batch scoring mutation that applied to some
// groups but not all. The successful updates stand; callers surface the
// failed group ids rather than pretending the whole batch succeeded.
type PartialScoreError struct {
	Failed []GroupScoreFailure
}

func (e *PartialScoreError) Error() string {
	parts := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		parts[i] = fmt.Sprintf("group %d: %v", f.GroupID, f.Err)
	}
	return "partial score update: " + strings.Join(parts, "; ")
}

// Scoring mutates group progress through the gateway. It never accumulates
// scores in memory: after every mutation the session snapshot is re-read so
// broadcasts cannot drift from the store.
type Scoring struct {
	gateway Gateway
	rules   Rules
}

func NewScoring(gateway Gateway, rules Rules) *Scoring {
	if rules.BonusPoints <= 0 {
		rules.BonusPoints = DefaultRules().BonusPoints
	}
	if rules.WedgesPerCategory <= 0 {
		rules.WedgesPerCategory = DefaultRules().WedgesPerCategory
	}
	return &Scoring{gateway: gateway, rules: rules}
}

// ApplyValidation scores a moderator judgment. Correct answers earn the
// answering group 1 wedge of the question's category, or BonusPoints with a
// stopped timer. Incorrect answers earn every other group in the session 1
// wedge of that category; those updates are independent and a failing group
// does not stop the rest.
//
// The returned snapshot is always re-read from the gateway. On partial
// redistribution failure the snapshot is still returned together with a
// *PartialScoreError.
func (s *Scoring) ApplyValidation(ctx context.Context, sessionID, groupID, questionID int64, isCorrect, stoppedTimer bool) ([]domain.GroupProgress, error) {
	question, err := s.gateway.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("look up question %d: %w", questionID, err)
	}

	if isCorrect {
		delta := 1
		if stoppedTimer {
			delta = s.rules.BonusPoints
		}
		if _, err := s.gateway.AdjustProgress(ctx, groupID, question.Category, delta); err != nil {
			return nil, fmt.Errorf("award %d %s to group %d: %w", delta, question.Category, groupID, err)
		}
		return s.gateway.ProgressSnapshot(ctx, sessionID)
	}

	groups, err := s.gateway.ListGroups(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list groups for session %d: %w", sessionID, err)
	}

	var failed []GroupScoreFailure
	for _, g := range groups {
		if g.ID == groupID {
			continue
		}
		if _, err := s.gateway.AdjustProgress(ctx, g.ID, question.Category, 1); err != nil {
			log.Printf("game: consolation point for group %d failed: %v", g.ID, err)
			failed = append(failed, GroupScoreFailure{GroupID: g.ID, Err: err})
		}
	}

	snapshot, err := s.gateway.ProgressSnapshot(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read progress snapshot: %w", err)
	}
	if len(failed) > 0 {
		return snapshot, &PartialScoreError{Failed: failed}
	}
	return snapshot, nil
}

// AdjustManually applies a direct delta to one group's counter, clamped at
// zero by the gateway, and returns the fresh session snapshot. Moderators
// use this for off-system judgment calls such as partial credit.
func (s *Scoring) AdjustManually(ctx context.Context, sessionID, groupID int64, category domain.Category, delta int) ([]domain.GroupProgress, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCategory, category)
	}
	if _, err := s.gateway.AdjustProgress(ctx, groupID, category, delta); err != nil {
		return nil, fmt.Errorf("adjust group %d by %d: %w", groupID, delta, err)
	}
	return s.gateway.ProgressSnapshot(ctx, sessionID)
}
