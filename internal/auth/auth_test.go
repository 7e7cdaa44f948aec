package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuer(t *testing.T, now func() time.Time) *Issuer {
	t.Helper()
	i, err := NewIssuer("fellowship", "test-signing-key", time.Hour, now)
	require.NoError(t, err)
	return i
}

func TestIssueAndParse(t *testing.T) {
	now := time.Date(2026, time.March, 8, 9, 0, 0, 0, time.UTC)
	i := newIssuer(t, func() time.Time { return now })

	tok, err := i.Issue("alice", RoleManager)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), tok.ExpiresAt)

	claims, err := i.Parse(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, RoleManager, claims.Role)

	other, err := NewIssuer("someone-else", "test-signing-key", time.Hour, func() time.Time { return now })
	require.NoError(t, err)
	_, err = other.Parse(tok.AccessToken)
	assert.Error(t, err, "issuer mismatch")

	forged, err := NewIssuer("fellowship", "another-key", time.Hour, func() time.Time { return now })
	require.NoError(t, err)
	_, err = forged.Parse(tok.AccessToken)
	assert.Error(t, err, "bad signature")

	now = now.Add(2 * time.Hour)
	_, err = i.Parse(tok.AccessToken)
	assert.Error(t, err, "expired")

	_, err = NewIssuer("fellowship", "", time.Hour, nil)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	i := newIssuer(t, nil)

	r := gin.New()
	r.GET("/reports", Authenticate(i), RequireRole(RoleManager), func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		c.String(http.StatusOK, claims.Subject)
	})

	manager, err := i.Issue("alice", RoleManager)
	require.NoError(t, err)
	usher, err := i.Issue("bob", "usher")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"wrong role", "Bearer " + usher.AccessToken, http.StatusForbidden},
		{"manager", "bearer " + manager.AccessToken, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/reports", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}
