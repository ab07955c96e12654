package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"camembert-game-service/internal/app"
	"camembert-game-service/internal/domain"
	"camembert-game-service/internal/infra/memory"
)

func seedSession(gw *memory.Gateway, redCount, greenCount int) int64 {
	sessionID := gw.AddSession(domain.Session{Title: "Seq Test", Status: domain.StatusActivated})
	for i := 0; i < redCount; i++ {
		gw.AddQuestion(sessionID, domain.Question{
			Category:       domain.CategoryRed,
			Title:          fmt.Sprintf("red %d", i+1),
			ExpectedAnswer: "a",
			AllocatedTime:  30,
			Options:        []string{"a", "b"},
		}, i+1)
	}
	for i := 0; i < greenCount; i++ {
		gw.AddQuestion(sessionID, domain.Question{
			Category:       domain.CategoryGreen,
			Title:          fmt.Sprintf("green %d", i+1),
			ExpectedAnswer: "a",
			AllocatedTime:  30,
		}, i+1)
	}
	return sessionID
}

func drain(t *testing.T, seq *app.Sequencer, st *app.LiveState) []domain.Question {
	t.Helper()
	var served []domain.Question
	for {
		q, _, _, err := seq.Next(context.Background(), st)
		if errors.Is(err, app.ErrNoMoreQuestions) {
			return served
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		served = append(served, q)
	}
}

func TestSequencerNeverRepeatsQuestions(t *testing.T) {
	gw := memory.NewGateway()
	sessionID := seedSession(gw, 4, 4)
	registry := app.NewRegistry(gw)
	seq := app.NewSequencer(gw)

	st, err := registry.Ensure(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	served := drain(t, seq, st)
	if len(served) != 8 {
		t.Fatalf("expected 8 questions, got %d", len(served))
	}
	seen := make(map[int64]bool)
	for _, q := range served {
		if seen[q.ID] {
			t.Fatalf("question %d served twice", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestSequencerAlternatesCategories(t *testing.T) {
	gw := memory.NewGateway()
	sessionID := seedSession(gw, 2, 2)
	registry := app.NewRegistry(gw)
	seq := app.NewSequencer(gw)

	st, _ := registry.Ensure(context.Background(), sessionID)
	served := drain(t, seq, st)

	want := []domain.Category{domain.CategoryRed, domain.CategoryGreen, domain.CategoryRed, domain.CategoryGreen}
	if len(served) != len(want) {
		t.Fatalf("expected %d questions, got %d", len(want), len(served))
	}
	for i, q := range served {
		if q.Category != want[i] {
			t.Fatalf("question %d: expected category %s, got %s", i, want[i], q.Category)
		}
	}
}

// An uneven seed exhausts as soon as the required category runs dry, even
// though the majority category still has unserved questions. That is the
// alternation policy working as intended, not a bug.
func TestSequencerExhaustsEarlyOnUnevenCategories(t *testing.T) {
	gw := memory.NewGateway()
	sessionID := seedSession(gw, 5, 1)
	registry := app.NewRegistry(gw)
	seq := app.NewSequencer(gw)

	st, _ := registry.Ensure(context.Background(), sessionID)
	served := drain(t, seq, st)

	if len(served) != 3 {
		t.Fatalf("expected 3 questions before exhaustion, got %d", len(served))
	}
	want := []domain.Category{domain.CategoryRed, domain.CategoryGreen, domain.CategoryRed}
	for i, q := range served {
		if q.Category != want[i] {
			t.Fatalf("question %d: expected %s, got %s", i, want[i], q.Category)
		}
	}
}

type failingLookupGateway struct {
	app.Gateway
}

func (g *failingLookupGateway) NextUnservedQuestion(context.Context, int64, domain.Category, []int64) (domain.Question, error) {
	return domain.Question{}, errors.New("connection refused")
}

func TestSequencerTreatsLookupFailureAsExhaustion(t *testing.T) {
	gw := memory.NewGateway()
	sessionID := seedSession(gw, 2, 2)
	failing := &failingLookupGateway{Gateway: gw}
	registry := app.NewRegistry(failing)
	seq := app.NewSequencer(failing)

	st, err := registry.Ensure(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	_, _, _, err = seq.Next(context.Background(), st)
	if !errors.Is(err, app.ErrNoMoreQuestions) {
		t.Fatalf("expected exhaustion on gateway failure, got %v", err)
	}
}

func TestSequencerAttachesOptionsForSingleChoice(t *testing.T) {
	gw := memory.NewGateway()
	sessionID := seedSession(gw, 1, 1)
	registry := app.NewRegistry(gw)
	seq := app.NewSequencer(gw)

	st, _ := registry.Ensure(context.Background(), sessionID)
	q, ordinal, total, err := seq.Next(context.Background(), st)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if q.Kind != domain.KindSingleChoice || len(q.Options) != 2 {
		t.Fatalf("expected single-choice with 2 options, got %s with %d", q.Kind, len(q.Options))
	}
	if ordinal != 1 || total != 2 {
		t.Fatalf("expected ordinal 1 of 2, got %d of %d", ordinal, total)
	}
}
