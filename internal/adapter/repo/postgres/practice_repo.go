package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

const practiceColumns = `id, user_id, topic, mode, messages, created_at, updated_at`

// PracticeRepo persists practice sessions with their transcript as a JSONB array.
type PracticeRepo struct {
	Pool PgxPool
	now  func() time.Time
}

// NewPracticeRepo constructs a PracticeRepo with the given pool.
func NewPracticeRepo(p PgxPool) *PracticeRepo {
	return &PracticeRepo{Pool: p, now: func() time.Time { return time.Now().UTC() }}
}

var _ domain.PracticeRepository = (*PracticeRepo)(nil)

func scanPractice(row pgx.Row) (domain.PracticeSession, error) {
	var s domain.PracticeSession
	var mode string
	var messages []byte
	if err := row.Scan(&s.ID, &s.UserID, &s.Topic, &mode, &messages, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return domain.PracticeSession{}, err
	}
	s.Mode = domain.PracticeMode(mode)
	s.Messages = []domain.Message{}
	if len(messages) > 0 {
		if err := json.Unmarshal(messages, &s.Messages); err != nil {
			return domain.PracticeSession{}, fmt.Errorf("decode messages: %w", err)
		}
	}
	return s, nil
}

// Create inserts a new session and returns its id.
func (r *PracticeRepo) Create(ctx domain.Context, s domain.PracticeSession) (string, error) {
	tracer := otel.Tracer("repo.practice")
	ctx, span := tracer.Start(ctx, "practice.Create")
	defer span.End()

	id := s.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := r.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	msgs := s.Messages
	if msgs == nil {
		msgs = []domain.Message{}
	}
	raw, err := json.Marshal(msgs)
	if err != nil {
		return "", fmt.Errorf("op=practice.create: %w", err)
	}
	q := `INSERT INTO practice_sessions (` + practiceColumns + `) VALUES ($1,$2,$3,$4,$5::jsonb,$6,$7)`
	if _, err := r.Pool.Exec(ctx, q, id, s.UserID, s.Topic, string(s.Mode), string(raw), s.CreatedAt, s.UpdatedAt); err != nil {
		return "", fmt.Errorf("op=practice.create: %w", err)
	}
	return id, nil
}

// Get loads a session by id.
func (r *PracticeRepo) Get(ctx domain.Context, id string) (domain.PracticeSession, error) {
	tracer := otel.Tracer("repo.practice")
	ctx, span := tracer.Start(ctx, "practice.Get")
	defer span.End()

	q := `SELECT ` + practiceColumns + ` FROM practice_sessions WHERE id=$1`
	s, err := scanPractice(r.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PracticeSession{}, fmt.Errorf("op=practice.get: %w", domain.ErrNotFound)
		}
		return domain.PracticeSession{}, fmt.Errorf("op=practice.get: %w", err)
	}
	return s, nil
}

// ListByUser returns up to limit sessions of userID, most recently updated first.
func (r *PracticeRepo) ListByUser(ctx domain.Context, userID string, limit int) ([]domain.PracticeSession, error) {
	tracer := otel.Tracer("repo.practice")
	ctx, span := tracer.Start(ctx, "practice.ListByUser")
	defer span.End()

	q := `SELECT ` + practiceColumns + ` FROM practice_sessions WHERE user_id=$1 ORDER BY updated_at DESC LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("op=practice.list: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PracticeSession, 0, limit)
	for rows.Next() {
		s, err := scanPractice(rows)
		if err != nil {
			return nil, fmt.Errorf("op=practice.list: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=practice.list: %w", err)
	}
	return out, nil
}

// PushMessages appends msgs in order and bumps updated_at.
func (r *PracticeRepo) PushMessages(ctx domain.Context, id string, msgs ...domain.Message) error {
	tracer := otel.Tracer("repo.practice")
	ctx, span := tracer.Start(ctx, "practice.PushMessages")
	defer span.End()

	if len(msgs) == 0 {
		return nil
	}
	raw, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("op=practice.push: %w", err)
	}
	q := `UPDATE practice_sessions SET messages = messages || $2::jsonb, updated_at=$3 WHERE id=$1`
	tag, err := r.Pool.Exec(ctx, q, id, string(raw), r.now())
	if err != nil {
		return fmt.Errorf("op=practice.push: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=practice.push: %w", domain.ErrNotFound)
	}
	return nil
}

// SetMessageContent replaces the content of the message carrying messageID in place.
func (r *PracticeRepo) SetMessageContent(ctx domain.Context, id, messageID, content string) error {
	tracer := otel.Tracer("repo.practice")
	ctx, span := tracer.Start(ctx, "practice.SetMessageContent")
	defer span.End()

	q := `UPDATE practice_sessions s SET
		messages = (
			SELECT jsonb_agg(
				CASE WHEN e.m->>'messageId' = $2 THEN jsonb_set(e.m, '{content}', to_jsonb($3::text)) ELSE e.m END
				ORDER BY e.idx)
			FROM jsonb_array_elements(s.messages) WITH ORDINALITY AS e(m, idx)
		),
		updated_at=$4
		WHERE s.id=$1 AND s.messages @> jsonb_build_array(jsonb_build_object('messageId', $2::text))`
	tag, err := r.Pool.Exec(ctx, q, id, messageID, content, r.now())
	if err != nil {
		return fmt.Errorf("op=practice.set_message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=practice.set_message: %w", domain.ErrNotFound)
	}
	return nil
}

// DeleteForUser removes the session when it belongs to userID.
func (r *PracticeRepo) DeleteForUser(ctx domain.Context, id, userID string) error {
	tracer := otel.Tracer("repo.practice")
	ctx, span := tracer.Start(ctx, "practice.DeleteForUser")
	defer span.End()

	tag, err := r.Pool.Exec(ctx, `DELETE FROM practice_sessions WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("op=practice.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=practice.delete: %w", domain.ErrNotFound)
	}
	return nil
}
