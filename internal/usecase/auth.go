package usecase

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

const minPasswordLen = 6

// AuthService registers accounts and checks credentials. Token issuing lives in the HTTP layer.
type AuthService struct {
	Users  domain.UserRepository
	Params Argon2Params
}

// NewAuthService constructs an AuthService with DefaultArgon2Params.
func NewAuthService(users domain.UserRepository) AuthService {
	return AuthService{Users: users, Params: DefaultArgon2Params}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account. A taken email yields ErrConflict.
func (s AuthService) Register(ctx domain.Context, name, email, password string) (domain.User, error) {
	name, email = textx.Label(name, maxLabelRunes), normalizeEmail(email)
	if name == "" {
		return domain.User{}, fmt.Errorf("%w: name is required", domain.ErrInvalidArgument)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, fmt.Errorf("%w: invalid email", domain.ErrInvalidArgument)
	}
	if len(password) < minPasswordLen {
		return domain.User{}, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidArgument, minPasswordLen)
	}
	hash, err := HashPassword(password, s.Params)
	if err != nil {
		return domain.User{}, err
	}
	u := domain.User{Name: name, Email: email, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	id, err := s.Users.Create(ctx, u)
	if err != nil {
		return domain.User{}, err
	}
	u.ID = id
	return u, nil
}

// Login returns the account for valid credentials. Unknown emails and wrong passwords both
// yield ErrUnauthorized.
func (s AuthService) Login(ctx domain.Context, email, password string) (domain.User, error) {
	u, err := s.Users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	if err != nil {
		return domain.User{}, err
	}
	if !VerifyPassword(password, u.PasswordHash) {
		return domain.User{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	return u, nil
}
