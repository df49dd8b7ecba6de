package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

const uniqueViolation = "23505"

// UserRepo persists accounts.
type UserRepo struct{ Pool PgxPool }

// NewUserRepo constructs a UserRepo with the given pool.
func NewUserRepo(p PgxPool) *UserRepo { return &UserRepo{Pool: p} }

var _ domain.UserRepository = (*UserRepo)(nil)

// Create inserts u; a duplicate email yields domain.ErrConflict.
func (r *UserRepo) Create(ctx domain.Context, u domain.User) (string, error) {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.Create")
	defer span.End()

	id := u.ID
	if id == "" {
		id = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	q := `INSERT INTO users (id, name, email, password_hash, created_at) VALUES ($1,$2,$3,$4,$5)`
	if _, err := r.Pool.Exec(ctx, q, id, u.Name, u.Email, u.PasswordHash, u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", fmt.Errorf("op=user.create: email taken: %w", domain.ErrConflict)
		}
		return "", fmt.Errorf("op=user.create: %w", err)
	}
	return id, nil
}

// GetByEmail loads a user by email.
func (r *UserRepo) GetByEmail(ctx domain.Context, email string) (domain.User, error) {
	tracer := otel.Tracer("repo.users")
	ctx, span := tracer.Start(ctx, "users.GetByEmail")
	defer span.End()

	q := `SELECT id, name, email, password_hash, created_at FROM users WHERE email=$1`
	var u domain.User
	if err := r.Pool.QueryRow(ctx, q, email).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("op=user.get_by_email: %w", domain.ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("op=user.get_by_email: %w", err)
	}
	return u, nil
}
