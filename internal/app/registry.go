package app

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// LiveState is a session's in-memory working set while a game runs: the
// ordinal of the next question, the total linked-question count, and the set
// of already-served question ids. It is created on first start and discarded
// on reset or game over; scores never live here.
type LiveState struct {
	sessionID int64

	mu     sync.Mutex
	index  int
	total  int
	served map[int64]struct{}
}

// tryAdvance acquires the state for a sequencing step. It fails instead of
// blocking so a racing start/next call is rejected rather than queued behind
// the winner and double-serving the next ordinal.
func (st *LiveState) tryAdvance() bool {
	return st.mu.TryLock()
}

func (st *LiveState) endAdvance() {
	st.mu.Unlock()
}

// servedIDs returns a copy of the served set. Callers must hold mu.
func (st *LiveState) servedIDs() []int64 {
	ids := make([]int64, 0, len(st.served))
	for id := range st.served {
		ids = append(ids, id)
	}
	return ids
}

// Served reports whether the question was already served this playthrough.
func (st *LiveState) Served(questionID int64) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.served[questionID]
	return ok
}

// Progress returns the number of served questions and the total count.
func (st *LiveState) Progress() (served, total int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.index, st.total
}

// Liveness mirrors live-session membership into an external store so
// operators can see which sessions hold in-process state. Best effort.
type Liveness interface {
	MarkLive(ctx context.Context, sessionID int64)
	ClearLive(ctx context.Context, sessionID int64)
}

// Registry owns the map from session id to live state. Initialization is
// lazy and singleflight-guarded: concurrent Ensure calls for one session
// observe the same LiveState, and the linked-question count is read once.
type Registry struct {
	gateway  Gateway
	liveness Liveness

	mu       sync.RWMutex
	sf       singleflight.Group
	sessions map[int64]*LiveState
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLiveness attaches an external liveness recorder.
func WithLiveness(l Liveness) RegistryOption {
	return func(r *Registry) { r.liveness = l }
}

func NewRegistry(gateway Gateway, opts ...RegistryOption) *Registry {
	r := &Registry{
		gateway:  gateway,
		sessions: make(map[int64]*LiveState),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ensure returns the session's live state, initializing it on first use.
func (r *Registry) Ensure(ctx context.Context, sessionID int64) (*LiveState, error) {
	r.mu.RLock()
	if st, ok := r.sessions[sessionID]; ok {
		r.mu.RUnlock()
		return st, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(fmt.Sprint(sessionID), func() (interface{}, error) {
		r.mu.RLock()
		if st, ok := r.sessions[sessionID]; ok {
			r.mu.RUnlock()
			return st, nil
		}
		r.mu.RUnlock()

		total, err := r.gateway.CountLinkedQuestions(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("count linked questions: %w", err)
		}
		st := &LiveState{
			sessionID: sessionID,
			total:     total,
			served:    make(map[int64]struct{}),
		}

		r.mu.Lock()
		r.sessions[sessionID] = st
		r.mu.Unlock()

		if r.liveness != nil {
			r.liveness.MarkLive(ctx, sessionID)
		}
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*LiveState), nil
}

// Get returns live state without initializing it.
func (r *Registry) Get(sessionID int64) (*LiveState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.sessions[sessionID]
	return st, ok
}

// Discard drops the session's live state. Safe to call when none exists.
func (r *Registry) Discard(ctx context.Context, sessionID int64) {
	r.mu.Lock()
	_, existed := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if existed && r.liveness != nil {
		r.liveness.ClearLive(ctx, sessionID)
	}
}
