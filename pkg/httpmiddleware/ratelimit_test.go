package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func fromAddr(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
	req.RemoteAddr = addr
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_Budget(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 3, Window: time.Minute})(okHandler())

	for i := range 3 {
		w := serve(h, fromAddr("192.168.1.1:12345"))
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}

	w := serve(h, fromAddr("192.168.1.1:12345"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "Too many requests, please try again later", body["message"])
}

func TestRateLimit_RemainingCountsDown(t *testing.T) {
	h := RateLimit(RateLimitConfig{Max: 3, Window: time.Minute})(okHandler())

	for _, want := range []string{"2", "1", "0"} {
		w := serve(h, fromAddr("10.1.1.1:1"))
		assert.Equal(t, want, w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_Keys(t *testing.T) {
	tests := []struct {
		name  string
		cfg   RateLimitConfig
		first func() *http.Request
		same  func() *http.Request
		other func() *http.Request
	}{
		{
			name:  "remote address",
			cfg:   RateLimitConfig{Max: 1, Window: time.Minute},
			first: func() *http.Request { return fromAddr("10.0.0.1:1234") },
			same:  func() *http.Request { return fromAddr("10.0.0.1:5678") },
			other: func() *http.Request { return fromAddr("10.0.0.2:1234") },
		},
		{
			name: "forwarded for",
			cfg:  RateLimitConfig{Max: 1, Window: time.Minute},
			first: func() *http.Request {
				r := fromAddr("192.168.1.1:4444")
				r.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
				return r
			},
			same: func() *http.Request {
				r := fromAddr("192.168.1.2:5555")
				r.Header.Set("X-Forwarded-For", "203.0.113.50")
				return r
			},
			other: func() *http.Request {
				r := fromAddr("192.168.1.1:4444")
				r.Header.Set("X-Real-IP", "198.51.100.7")
				return r
			},
		},
		{
			name: "custom key",
			cfg: RateLimitConfig{Max: 1, Window: time.Minute, KeyFunc: func(r *http.Request) string {
				return r.Header.Get("X-Terminal")
			}},
			first: func() *http.Request {
				r := fromAddr("10.0.0.1:1")
				r.Header.Set("X-Terminal", "pos-1")
				return r
			},
			same: func() *http.Request {
				r := fromAddr("10.0.0.9:1")
				r.Header.Set("X-Terminal", "pos-1")
				return r
			},
			other: func() *http.Request {
				r := fromAddr("10.0.0.1:1")
				r.Header.Set("X-Terminal", "pos-2")
				return r
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RateLimit(tt.cfg)(okHandler())

			assert.Equal(t, http.StatusOK, serve(h, tt.first()).Code)
			assert.Equal(t, http.StatusTooManyRequests, serve(h, tt.same()).Code)
			assert.Equal(t, http.StatusOK, serve(h, tt.other()).Code)
		})
	}
}

func TestLimiter_WindowSlides(t *testing.T) {
	l := newLimiter(RateLimitConfig{Max: 2, Window: time.Minute})
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	_, _, ok := l.take("k", start)
	require.True(t, ok)
	_, _, ok = l.take("k", start.Add(time.Second))
	require.True(t, ok)
	_, _, ok = l.take("k", start.Add(2*time.Second))
	require.False(t, ok)

	// Half a window later the previous window still weighs about one request.
	_, _, ok = l.take("k", start.Add(90*time.Second))
	assert.True(t, ok)

	// After two idle windows the history is forgotten.
	l.evict(start.Add(10 * time.Minute))
	assert.Empty(t, l.counters)
}
