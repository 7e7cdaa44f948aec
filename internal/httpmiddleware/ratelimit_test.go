package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestTokenBucketRefills(t *testing.T) {
	now := time.Date(2026, time.March, 8, 9, 0, 0, 0, time.UTC)
	l := NewTokenBucket(2, 60, func() time.Time { return now })

	ok, _ := l.Allow("kiosk")
	assert.True(t, ok)
	ok, _ = l.Allow("kiosk")
	assert.True(t, ok)
	ok, wait := l.Allow("kiosk")
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	ok, _ = l.Allow("other")
	assert.True(t, ok, "buckets are per key")

	now = now.Add(time.Second)
	ok, _ = l.Allow("kiosk")
	assert.True(t, ok)
	ok, _ = l.Allow("kiosk")
	assert.False(t, ok)
}

func TestMiddlewareRejectsWithRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.March, 8, 9, 0, 0, 0, time.UTC)
	l := NewTokenBucket(1, 30, func() time.Time { return now })

	r := gin.New()
	r.Use(SecurityHeaders(), l.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		return w
	}

	first := do()
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "nosniff", first.Header().Get("X-Content-Type-Options"))

	second := do()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "2", second.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate_limited","message":"too many requests, slow down"}`, second.Body.String())
}
