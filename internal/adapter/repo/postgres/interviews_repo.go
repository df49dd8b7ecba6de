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

const interviewColumns = `id, user_id, role, difficulty, questions, total_score, status, created_at`

// InterviewRepo persists interviews with their Q&A list as a JSONB array.
type InterviewRepo struct{ Pool PgxPool }

// NewInterviewRepo constructs an InterviewRepo with the given pool.
func NewInterviewRepo(p PgxPool) *InterviewRepo { return &InterviewRepo{Pool: p} }

var _ domain.InterviewRepository = (*InterviewRepo)(nil)

func scanInterview(row pgx.Row) (domain.Interview, error) {
	var iv domain.Interview
	var questions []byte
	var status string
	if err := row.Scan(&iv.ID, &iv.UserID, &iv.Role, &iv.Difficulty, &questions, &iv.TotalScore, &status, &iv.CreatedAt); err != nil {
		return domain.Interview{}, err
	}
	iv.Status = domain.InterviewStatus(status)
	iv.Questions = []domain.QuestionAnswer{}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &iv.Questions); err != nil {
			return domain.Interview{}, fmt.Errorf("decode questions: %w", err)
		}
	}
	return iv, nil
}

// Create inserts a new interview and returns its id.
func (r *InterviewRepo) Create(ctx domain.Context, iv domain.Interview) (string, error) {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Create")
	defer span.End()

	id := iv.ID
	if id == "" {
		id = uuid.New().String()
	}
	if iv.Status == "" {
		iv.Status = domain.InterviewInProgress
	}
	if iv.CreatedAt.IsZero() {
		iv.CreatedAt = time.Now().UTC()
	}
	questions := iv.Questions
	if questions == nil {
		questions = []domain.QuestionAnswer{}
	}
	qs, err := json.Marshal(questions)
	if err != nil {
		return "", fmt.Errorf("op=interview.create: %w", err)
	}
	q := `INSERT INTO interviews (` + interviewColumns + `) VALUES ($1,$2,$3,$4,$5::jsonb,$6,$7,$8)`
	if _, err := r.Pool.Exec(ctx, q, id, iv.UserID, iv.Role, iv.Difficulty, string(qs), domain.AverageScore(questions), string(iv.Status), iv.CreatedAt); err != nil {
		return "", fmt.Errorf("op=interview.create: %w", err)
	}
	return id, nil
}

// Get loads an interview by id.
func (r *InterviewRepo) Get(ctx domain.Context, id string) (domain.Interview, error) {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Get")
	defer span.End()

	q := `SELECT ` + interviewColumns + ` FROM interviews WHERE id=$1`
	iv, err := scanInterview(r.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Interview{}, fmt.Errorf("op=interview.get: %w", domain.ErrNotFound)
		}
		return domain.Interview{}, fmt.Errorf("op=interview.get: %w", err)
	}
	return iv, nil
}

// ListByUser returns up to limit interviews of userID, newest first.
func (r *InterviewRepo) ListByUser(ctx domain.Context, userID string, limit int) ([]domain.Interview, error) {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.ListByUser")
	defer span.End()

	q := `SELECT ` + interviewColumns + ` FROM interviews WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.Pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("op=interview.list: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Interview, 0, limit)
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("op=interview.list: %w", err)
		}
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=interview.list: %w", err)
	}
	return out, nil
}

// AppendAnswer pushes qa and recomputes total_score as the rounded mean of all scores in one statement.
func (r *InterviewRepo) AppendAnswer(ctx domain.Context, id string, qa domain.QuestionAnswer) (domain.Interview, error) {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.AppendAnswer")
	defer span.End()

	if qa.Timestamp.IsZero() {
		qa.Timestamp = time.Now().UTC()
	}
	item, err := json.Marshal([]domain.QuestionAnswer{qa})
	if err != nil {
		return domain.Interview{}, fmt.Errorf("op=interview.append_answer: %w", err)
	}
	q := `UPDATE interviews SET
		questions = questions || $2::jsonb,
		total_score = (
			SELECT COALESCE(ROUND(AVG((e->>'score')::numeric)), 0)::int
			FROM jsonb_array_elements(questions || $2::jsonb) AS e
		)
		WHERE id=$1 AND status=$3
		RETURNING ` + interviewColumns
	iv, err := scanInterview(r.Pool.QueryRow(ctx, q, id, string(item), string(domain.InterviewInProgress)))
	if err == nil {
		return iv, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Interview{}, fmt.Errorf("op=interview.append_answer: %w", err)
	}
	// nothing updated: unknown id or already completed
	if _, gerr := r.Get(ctx, id); gerr != nil {
		return domain.Interview{}, fmt.Errorf("op=interview.append_answer: %w", gerr)
	}
	return domain.Interview{}, fmt.Errorf("op=interview.append_answer: interview completed: %w", domain.ErrConflict)
}

// Complete marks the interview completed and returns it.
func (r *InterviewRepo) Complete(ctx domain.Context, id string) (domain.Interview, error) {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Complete")
	defer span.End()

	q := `UPDATE interviews SET status=$2 WHERE id=$1 RETURNING ` + interviewColumns
	iv, err := scanInterview(r.Pool.QueryRow(ctx, q, id, string(domain.InterviewCompleted)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Interview{}, fmt.Errorf("op=interview.complete: %w", domain.ErrNotFound)
		}
		return domain.Interview{}, fmt.Errorf("op=interview.complete: %w", err)
	}
	return iv, nil
}
