package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Claims are the JWT claims issued to signed-in users.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer whose tokens expire after ttl.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for userID.
func (t *TokenIssuer) Issue(userID string) (string, error) {
	now := t.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("op=auth.issue: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns its user id.
func (t *TokenIssuer) Parse(raw string) (string, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}
	if claims.UserID == "" {
		return "", fmt.Errorf("%w: token has no userId", domain.ErrUnauthorized)
	}
	return claims.UserID, nil
}

func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", errors.New("missing Authorization header")
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("expected Bearer token")
	}
	return strings.TrimSpace(token), nil
}

// RequireAuth rejects requests without a valid bearer token and stores the user id in the context.
func (t *TokenIssuer) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerToken(r)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %s", domain.ErrUnauthorized, err.Error()), nil)
			return
		}
		userID, err := t.Parse(raw)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized), nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(observability.ContextWithUserID(r.Context(), userID)))
	})
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// RegisterHandler creates an account and returns a token for it.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name     string `json:"name" validate:"required,max=100"`
			Email    string `json:"email" validate:"required,email"`
			Password string `json:"password" validate:"required,min=6,max=200"`
		}
		if !decodeAndValidate(w, r, &req) {
			return
		}
		u, err := s.Auth.Register(r.Context(), req.Name, req.Email, req.Password)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		s.writeToken(w, r, http.StatusCreated, u)
	}
}

// LoginHandler exchanges credentials for a token.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email" validate:"required"`
			Password string `json:"password" validate:"required"`
		}
		if !decodeAndValidate(w, r, &req) {
			return
		}
		u, err := s.Auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		s.writeToken(w, r, http.StatusOK, u)
	}
}

func (s *Server) writeToken(w http.ResponseWriter, r *http.Request, status int, u domain.User) {
	token, err := s.Tokens.Issue(u.ID)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	writeJSON(w, status, authResponse{Token: token, User: u})
}
