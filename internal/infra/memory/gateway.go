package memory

import (
	"context"
	"sort"
	"sync"

	"camembert-game-service/internal/domain"
)

// Gateway is a complete in-memory persistence gateway. It backs unit tests
// and demo mode when no Postgres is configured.
type Gateway struct {
	mu        sync.RWMutex
	nextID    int64
	sessions  map[int64]domain.Session
	questions map[int64]domain.Question
	links     map[int64][]link // session id -> linked questions
	groups    map[int64]domain.Group
	progress  map[int64]domain.Camembert
}

type link struct {
	questionID int64
	order      int
}

func NewGateway() *Gateway {
	return &Gateway{
		sessions:  make(map[int64]domain.Session),
		questions: make(map[int64]domain.Question),
		links:     make(map[int64][]link),
		groups:    make(map[int64]domain.Group),
		progress:  make(map[int64]domain.Camembert),
	}
}

// AddSession stores a session and returns its id.
func (g *Gateway) AddSession(session domain.Session) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	session.ID = g.nextID
	if session.Status == "" {
		session.Status = domain.StatusDraft
	}
	g.sessions[session.ID] = session
	return session.ID
}

// AddQuestion stores a question and links it to the session with the given
// per-session order.
func (g *Gateway) AddQuestion(sessionID int64, question domain.Question, order int) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	question.ID = g.nextID
	question.Order = order
	if question.Kind == "" {
		if len(question.Options) > 0 {
			question.Kind = domain.KindSingleChoice
		} else {
			question.Kind = domain.KindFreeText
		}
	}
	g.questions[question.ID] = question
	g.links[sessionID] = append(g.links[sessionID], link{questionID: question.ID, order: order})
	return question.ID
}

// AddGroup stores a group and creates its progress record, zeroed.
func (g *Gateway) AddGroup(group domain.Group) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	group.ID = g.nextID
	g.groups[group.ID] = group
	g.progress[group.ID] = domain.Camembert{}
	return group.ID
}

func (g *Gateway) GetSession(_ context.Context, sessionID int64) (domain.Session, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	session, ok := g.sessions[sessionID]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (g *Gateway) SetSessionStatus(_ context.Context, sessionID int64, status domain.Status) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	session, ok := g.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.Status = status
	g.sessions[sessionID] = session
	return nil
}

func (g *Gateway) CountLinkedQuestions(_ context.Context, sessionID int64) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.links[sessionID]), nil
}

func (g *Gateway) NextUnservedQuestion(_ context.Context, sessionID int64, category domain.Category, served []int64) (domain.Question, error) {
	excluded := make(map[int64]struct{}, len(served))
	for _, id := range served {
		excluded[id] = struct{}{}
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	candidates := make([]link, 0)
	for _, l := range g.links[sessionID] {
		if _, ok := excluded[l.questionID]; ok {
			continue
		}
		if g.questions[l.questionID].Category == category {
			candidates = append(candidates, l)
		}
	}
	if len(candidates) == 0 {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].order != candidates[j].order {
			return candidates[i].order < candidates[j].order
		}
		return candidates[i].questionID < candidates[j].questionID
	})
	return g.questions[candidates[0].questionID], nil
}

func (g *Gateway) GetQuestion(_ context.Context, questionID int64) (domain.Question, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	question, ok := g.questions[questionID]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return question, nil
}

func (g *Gateway) GetGroup(_ context.Context, groupID int64) (domain.Group, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	group, ok := g.groups[groupID]
	if !ok {
		return domain.Group{}, domain.ErrGroupNotFound
	}
	return group, nil
}

func (g *Gateway) ListGroups(_ context.Context, sessionID int64) ([]domain.Group, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	groups := make([]domain.Group, 0)
	for _, group := range g.groups {
		if group.SessionID == sessionID {
			groups = append(groups, group)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, nil
}

func (g *Gateway) SetGroupJoinCode(_ context.Context, groupID int64, code string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	group, ok := g.groups[groupID]
	if !ok {
		return domain.ErrGroupNotFound
	}
	group.JoinCode = code
	g.groups[groupID] = group
	return nil
}

func (g *Gateway) GetProgress(_ context.Context, groupID int64) (domain.Camembert, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	progress, ok := g.progress[groupID]
	if !ok {
		return domain.Camembert{}, domain.ErrGroupNotFound
	}
	return progress, nil
}

func (g *Gateway) AdjustProgress(_ context.Context, groupID int64, category domain.Category, delta int) (domain.Camembert, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	progress, ok := g.progress[groupID]
	if !ok {
		return domain.Camembert{}, domain.ErrGroupNotFound
	}
	switch category {
	case domain.CategoryRed:
		progress.Red = clamp(progress.Red + delta)
	case domain.CategoryGreen:
		progress.Green = clamp(progress.Green + delta)
	default:
		return domain.Camembert{}, domain.ErrInvalidCategory
	}
	g.progress[groupID] = progress
	return progress, nil
}

func (g *Gateway) ProgressSnapshot(ctx context.Context, sessionID int64) ([]domain.GroupProgress, error) {
	groups, err := g.ListGroups(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	snapshot := make([]domain.GroupProgress, 0, len(groups))
	for _, group := range groups {
		snapshot = append(snapshot, domain.GroupProgress{
			GroupID:   group.ID,
			GroupName: group.Name,
			Camembert: g.progress[group.ID],
		})
	}
	return snapshot, nil
}

func (g *Gateway) ResetProgress(_ context.Context, sessionID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, group := range g.groups {
		if group.SessionID == sessionID {
			g.progress[id] = domain.Camembert{}
		}
	}
	return nil
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
