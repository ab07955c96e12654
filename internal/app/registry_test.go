package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"camembert-game-service/internal/domain"
	"camembert-game-service/internal/infra/memory"
)

type countingGateway struct {
	Gateway
	counts int32
}

func (g *countingGateway) CountLinkedQuestions(ctx context.Context, sessionID int64) (int, error) {
	atomic.AddInt32(&g.counts, 1)
	return g.Gateway.CountLinkedQuestions(ctx, sessionID)
}

func TestEnsureInitializesOncePerSession(t *testing.T) {
	gw := memory.NewGateway()
	sessionID := gw.AddSession(domain.Session{Title: "Registry Test"})
	gw.AddQuestion(sessionID, domain.Question{Category: domain.CategoryRed, Title: "q"}, 1)

	counting := &countingGateway{Gateway: gw}
	registry := NewRegistry(counting)

	const callers = 16
	states := make([]*LiveState, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			st, err := registry.Ensure(context.Background(), sessionID)
			if err != nil {
				t.Errorf("ensure: %v", err)
				return
			}
			states[i] = st
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		if states[i] != states[0] {
			t.Fatalf("caller %d got a different LiveState instance", i)
		}
	}
	if n := atomic.LoadInt32(&counting.counts); n != 1 {
		t.Fatalf("expected a single question count query, got %d", n)
	}
	if _, total := states[0].Progress(); total != 1 {
		t.Fatalf("expected total 1, got %d", total)
	}
}

func TestDiscardDropsLiveState(t *testing.T) {
	gw := memory.NewGateway()
	sessionID := gw.AddSession(domain.Session{Title: "Registry Test"})
	registry := NewRegistry(gw)

	if _, err := registry.Ensure(context.Background(), sessionID); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	registry.Discard(context.Background(), sessionID)
	if _, ok := registry.Get(sessionID); ok {
		t.Fatalf("expected live state discarded")
	}
	// safe to discard twice
	registry.Discard(context.Background(), sessionID)
}

func TestConcurrentAdvanceIsRejected(t *testing.T) {
	gw := memory.NewGateway()
	sessionID := gw.AddSession(domain.Session{Title: "Registry Test"})
	gw.AddQuestion(sessionID, domain.Question{Category: domain.CategoryRed, Title: "q"}, 1)

	registry := NewRegistry(gw)
	seq := NewSequencer(gw)
	st, err := registry.Ensure(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if !st.tryAdvance() {
		t.Fatalf("expected to acquire advance")
	}
	defer st.endAdvance()

	_, _, _, err = seq.Next(context.Background(), st)
	if !errors.Is(err, domain.ErrAdvanceInFlight) {
		t.Fatalf("expected advance-in-flight rejection, got %v", err)
	}
}
