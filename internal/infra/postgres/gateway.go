package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"camembert-game-service/internal/domain"
)

// Gateway implements the persistence port over Postgres with raw SQL.
type Gateway struct {
	pool *pgxpool.Pool
}

func NewGateway(pool *pgxpool.Pool) *Gateway {
	return &Gateway{pool: pool}
}

func (g *Gateway) GetSession(ctx context.Context, sessionID int64) (domain.Session, error) {
	var s domain.Session
	err := g.pool.QueryRow(ctx, `
		SELECT id, title, date, red_questions_label, green_questions_label, status, created_at
		FROM game_sessions WHERE id=$1`, sessionID).
		Scan(&s.ID, &s.Title, &s.Date, &s.RedLabel, &s.GreenLabel, &s.Status, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session %d: %w", sessionID, err)
	}
	return s, nil
}

func (g *Gateway) SetSessionStatus(ctx context.Context, sessionID int64, status domain.Status) error {
	tag, err := g.pool.Exec(ctx, `UPDATE game_sessions SET status=$2 WHERE id=$1`, sessionID, string(status))
	if err != nil {
		return fmt.Errorf("set session %d status: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (g *Gateway) CountLinkedQuestions(ctx context.Context, sessionID int64) (int, error) {
	var count int
	err := g.pool.QueryRow(ctx,
		`SELECT count(*) FROM session_questions WHERE session_id=$1`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count linked questions: %w", err)
	}
	return count, nil
}

func (g *Gateway) NextUnservedQuestion(ctx context.Context, sessionID int64, category domain.Category, served []int64) (domain.Question, error) {
	if served == nil {
		served = []int64{}
	}
	var q domain.Question
	err := g.pool.QueryRow(ctx, `
		SELECT q.id, q.type, q.title, q.expected_answer, q.allocated_time, sq.question_order
		FROM questions q
		JOIN session_questions sq ON sq.question_id = q.id
		WHERE sq.session_id=$1 AND q.type=$2 AND NOT (q.id = ANY($3))
		ORDER BY sq.question_order ASC, q.id ASC
		LIMIT 1`, sessionID, string(category), served).
		Scan(&q.ID, &q.Category, &q.Title, &q.ExpectedAnswer, &q.AllocatedTime, &q.Order)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("next unserved question: %w", err)
	}
	return g.attachOptions(ctx, q)
}

func (g *Gateway) GetQuestion(ctx context.Context, questionID int64) (domain.Question, error) {
	var q domain.Question
	err := g.pool.QueryRow(ctx, `
		SELECT id, type, title, expected_answer, allocated_time
		FROM questions WHERE id=$1`, questionID).
		Scan(&q.ID, &q.Category, &q.Title, &q.ExpectedAnswer, &q.AllocatedTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("get question %d: %w", questionID, err)
	}
	return g.attachOptions(ctx, q)
}

// attachOptions loads choice strings and derives the question kind: a
// question with options is single-choice, one without is free-text.
func (g *Gateway) attachOptions(ctx context.Context, q domain.Question) (domain.Question, error) {
	rows, err := g.pool.Query(ctx,
		`SELECT option_text FROM question_options WHERE question_id=$1 ORDER BY id`, q.ID)
	if err != nil {
		return domain.Question{}, fmt.Errorf("load options for question %d: %w", q.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var option string
		if err := rows.Scan(&option); err != nil {
			return domain.Question{}, fmt.Errorf("scan option: %w", err)
		}
		q.Options = append(q.Options, option)
	}
	if err := rows.Err(); err != nil {
		return domain.Question{}, fmt.Errorf("read options: %w", err)
	}
	if len(q.Options) > 0 {
		q.Kind = domain.KindSingleChoice
	} else {
		q.Kind = domain.KindFreeText
	}
	return q, nil
}

func (g *Gateway) GetGroup(ctx context.Context, groupID int64) (domain.Group, error) {
	var gr domain.Group
	err := g.pool.QueryRow(ctx, `
		SELECT id, session_id, name, description, avatar_name, avatar_url, join_code
		FROM groups WHERE id=$1`, groupID).
		Scan(&gr.ID, &gr.SessionID, &gr.Name, &gr.Description, &gr.AvatarName, &gr.AvatarURL, &gr.JoinCode)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Group{}, domain.ErrGroupNotFound
	}
	if err != nil {
		return domain.Group{}, fmt.Errorf("get group %d: %w", groupID, err)
	}
	return gr, nil
}

func (g *Gateway) ListGroups(ctx context.Context, sessionID int64) ([]domain.Group, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT id, session_id, name, description, avatar_name, avatar_url, join_code
		FROM groups WHERE session_id=$1 ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()
	groups := make([]domain.Group, 0)
	for rows.Next() {
		var gr domain.Group
		if err := rows.Scan(&gr.ID, &gr.SessionID, &gr.Name, &gr.Description, &gr.AvatarName, &gr.AvatarURL, &gr.JoinCode); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, gr)
	}
	return groups, rows.Err()
}

func (g *Gateway) SetGroupJoinCode(ctx context.Context, groupID int64, code string) error {
	tag, err := g.pool.Exec(ctx, `UPDATE groups SET join_code=$2 WHERE id=$1`, groupID, code)
	if err != nil {
		return fmt.Errorf("set join code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrGroupNotFound
	}
	return nil
}

func (g *Gateway) GetProgress(ctx context.Context, groupID int64) (domain.Camembert, error) {
	var c domain.Camembert
	err := g.pool.QueryRow(ctx, `
		SELECT red_triangles, green_triangles FROM camembert_progress WHERE group_id=$1`, groupID).
		Scan(&c.Red, &c.Green)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Camembert{}, domain.ErrGroupNotFound
	}
	if err != nil {
		return domain.Camembert{}, fmt.Errorf("get progress for group %d: %w", groupID, err)
	}
	return c, nil
}

// AdjustProgress clamps at zero in SQL so concurrent updates cannot drive a
// counter negative between read and write.
func (g *Gateway) AdjustProgress(ctx context.Context, groupID int64, category domain.Category, delta int) (domain.Camembert, error) {
	var query string
	switch category {
	case domain.CategoryRed:
		query = `UPDATE camembert_progress
			SET red_triangles = GREATEST(0, red_triangles + $2)
			WHERE group_id=$1 RETURNING red_triangles, green_triangles`
	case domain.CategoryGreen:
		query = `UPDATE camembert_progress
			SET green_triangles = GREATEST(0, green_triangles + $2)
			WHERE group_id=$1 RETURNING red_triangles, green_triangles`
	default:
		return domain.Camembert{}, domain.ErrInvalidCategory
	}

	var c domain.Camembert
	err := g.pool.QueryRow(ctx, query, groupID, delta).Scan(&c.Red, &c.Green)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Camembert{}, domain.ErrGroupNotFound
	}
	if err != nil {
		return domain.Camembert{}, fmt.Errorf("adjust progress for group %d: %w", groupID, err)
	}
	return c, nil
}

func (g *Gateway) ProgressSnapshot(ctx context.Context, sessionID int64) ([]domain.GroupProgress, error) {
	rows, err := g.pool.Query(ctx, `
		SELECT g.id, g.name, cp.red_triangles, cp.green_triangles
		FROM groups g
		JOIN camembert_progress cp ON cp.group_id = g.id
		WHERE g.session_id=$1 ORDER BY g.id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("progress snapshot: %w", err)
	}
	defer rows.Close()
	snapshot := make([]domain.GroupProgress, 0)
	for rows.Next() {
		var entry domain.GroupProgress
		if err := rows.Scan(&entry.GroupID, &entry.GroupName, &entry.Red, &entry.Green); err != nil {
			return nil, fmt.Errorf("scan snapshot entry: %w", err)
		}
		snapshot = append(snapshot, entry)
	}
	return snapshot, rows.Err()
}

func (g *Gateway) ResetProgress(ctx context.Context, sessionID int64) error {
	_, err := g.pool.Exec(ctx, `
		UPDATE camembert_progress SET red_triangles=0, green_triangles=0
		WHERE group_id IN (SELECT id FROM groups WHERE session_id=$1)`, sessionID)
	if err != nil {
		return fmt.Errorf("reset progress for session %d: %w", sessionID, err)
	}
	return nil
}
