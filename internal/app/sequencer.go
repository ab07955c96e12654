package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"camembert-game-service/internal/domain"
)

// ErrNoMoreQuestions is the sequencer's terminal condition: no unserved
// question remains for the category the alternation policy asks for.
var ErrNoMoreQuestions = errors.New("no more questions")

// Sequencer picks the next question for a running session. Category
// alternates with the question ordinal (even index red, odd green); within a
// category the per-session question_order decides. A category running dry
// ends the sequence even if the other still has questions: uneven seeds
// exhaust early on purpose, so a lopsided question set does not degenerate
// into a one-category run.
type Sequencer struct {
	gateway Gateway
}

func NewSequencer(gateway Gateway) *Sequencer {
	return &Sequencer{gateway: gateway}
}

// Next serves the next question and reports its 1-based ordinal and the
// session total. It returns ErrNoMoreQuestions on exhaustion and
// domain.ErrAdvanceInFlight when another advance holds the state.
//
// A gateway failure during lookup is logged and reported as exhaustion: an
// early game-over beats an indefinitely retried question fetch.
func (s *Sequencer) Next(ctx context.Context, st *LiveState) (domain.Question, int, int, error) {
	if !st.tryAdvance() {
		return domain.Question{}, 0, 0, domain.ErrAdvanceInFlight
	}
	defer st.endAdvance()

	category := domain.CategoryRed
	if st.index%2 == 1 {
		category = domain.CategoryGreen
	}

	q, err := s.gateway.NextUnservedQuestion(ctx, st.sessionID, category, st.servedIDs())
	if err != nil {
		if !errors.Is(err, domain.ErrQuestionNotFound) {
			log.Printf("game: session %d question lookup failed, ending sequence: %v", st.sessionID, err)
		}
		return domain.Question{}, 0, 0, fmt.Errorf("%w: session %d category %s", ErrNoMoreQuestions, st.sessionID, category)
	}

	st.served[q.ID] = struct{}{}
	st.index++
	return q, st.index, st.total, nil
}
