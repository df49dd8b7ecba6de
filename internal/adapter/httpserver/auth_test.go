package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	ti := NewTokenIssuer("s3cret", time.Hour)
	raw, err := ti.Issue("u1")
	require.NoError(t, err)

	uid, err := ti.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	ti := NewTokenIssuer("s3cret", time.Hour)
	good, err := ti.Issue("u1")
	require.NoError(t, err)

	other, err := NewTokenIssuer("different", time.Hour).Issue("u1")
	require.NoError(t, err)

	expired := NewTokenIssuer("s3cret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.Issue("u1")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u1"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"wrong secret": other,
		"expired":      old,
		"alg none":     none,
		"no user id":   noUser,
		"no expiry":    noExp,
		"garbage":      "not.a.token",
		"tampered":     good + "x",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ti.Parse(raw)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	ti := NewTokenIssuer("s3cret", time.Hour)
	var seen string
	h := ti.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	token, err := ti.Issue("u42")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"invalid", "Bearer abc", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
		{"lowercase scheme", "bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNoContent {
				assert.Equal(t, "u42", seen)
			} else {
				assert.Empty(t, seen)
			}
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	var stored domain.User
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u domain.User) bool {
		stored = u
		return u.Email == "ada@example.com"
	})).Return("u1", nil)

	rec := f.do(t, http.MethodPost, "/api/auth/register", "",
		map[string]string{"name": "Ada", "email": "Ada@Example.com", "password": "hunter22"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	uid, err := f.tokens.Parse(body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
	user := body["user"].(map[string]any)
	assert.Equal(t, "u1", user["id"])
	assert.NotContains(t, rec.Body.String(), "hunter22")
	assert.NotContains(t, rec.Body.String(), stored.PasswordHash)

	stored.ID = "u1"
	f.users.On("GetByEmail", mock.Anything, "ada@example.com").Return(stored, nil)

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode(t, rec)["token"])

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.users.On("Create", mock.Anything, mock.Anything).Return("", domain.ErrConflict)

	rec := f.do(t, http.MethodPost, "/api/auth/register", "",
		map[string]string{"name": "Ada", "email": "ada@example.com", "password": "hunter22"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/auth/register", "",
		map[string]string{"name": "Ada", "email": "nope", "password": "123"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	details := decode(t, rec)["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "email", details["email"])
	assert.Equal(t, "min", details["password"])
}

func TestLogin_UnknownEmail(t *testing.T) {
	f := newFixture(t)
	f.users.On("GetByEmail", mock.Anything, "ghost@example.com").Return(domain.User{}, domain.ErrNotFound)

	rec := f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ghost@example.com", "password": "whatever"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

