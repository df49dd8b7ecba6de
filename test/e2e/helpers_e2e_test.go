//go:build e2e

package e2e_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// getenv returns the value of the environment variable k or def if empty.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

var (
	baseURL = strings.TrimSuffix(getenv("E2E_BASE_URL", "http://localhost:5000"), "/")
	timeout = 60 * time.Second
)

// requireApp skips the test when the server is not reachable.
func requireApp(t *testing.T, client *http.Client) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping E2E tests in short mode")
	}
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		t.Skipf("App not available at %s; skipping E2E: %v", baseURL, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Skipf("App not healthy at %s (status %d); skipping E2E", baseURL, resp.StatusCode)
	}
}

// call sends a JSON request and decodes a JSON response into out when non-nil.
func call(t *testing.T, client *http.Client, method, path, token string, body, out any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, baseURL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, out), "body: %s", raw)
	}
	return resp
}

// registerUser creates a fresh account and returns its token.
func registerUser(t *testing.T, client *http.Client) string {
	t.Helper()
	email := fmt.Sprintf("e2e-%d@example.com", time.Now().UnixNano())
	var out struct {
		Token string `json:"token"`
	}
	resp := call(t, client, http.MethodPost, "/api/auth/register", "",
		map[string]string{"name": "E2E", "email": email, "password": "e2e-password"}, &out)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, out.Token)
	return out.Token
}
