package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyfork/bookchat/internal/testutil"
)

func upPinger() Pinger {
	return PingerFunc(func(context.Context) error { return nil })
}

func downPinger() Pinger {
	return PingerFunc(func(context.Context) error { return errors.New("unreachable") })
}

func doHealth(t *testing.T, database, vectorStore, model Pinger) (*httptest.ResponseRecorder, healthResponse) {
	t.Helper()

	hh := &healthHandler{
		database:    database,
		vectorStore: vectorStore,
		model:       model,
		timeout:     time.Second,
		logger:      testutil.DiscardLogger(),
	}

	w := httptest.NewRecorder()
	hh.check(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHealth(t *testing.T) {
	t.Run("all dependencies up", func(t *testing.T) {
		w, body := doHealth(t, upPinger(), upPinger(), upPinger())

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "up", body.Dependencies[depDatabase])
		assert.Equal(t, "up", body.Dependencies[depVectorStore])
		assert.Equal(t, "up", body.Dependencies[depModel])
		assert.False(t, body.Timestamp.IsZero())
	})

	t.Run("database down is degraded", func(t *testing.T) {
		w, body := doHealth(t, downPinger(), upPinger(), upPinger())

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "down", body.Dependencies[depDatabase])
	})

	t.Run("vector store down is unhealthy", func(t *testing.T) {
		w, body := doHealth(t, upPinger(), downPinger(), upPinger())

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unhealthy", body.Status)
	})

	t.Run("model down is unhealthy", func(t *testing.T) {
		w, body := doHealth(t, upPinger(), upPinger(), downPinger())

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unhealthy", body.Status)
	})

	t.Run("slow probe bounded by timeout", func(t *testing.T) {
		slow := PingerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})

		hh := &healthHandler{
			database:    upPinger(),
			vectorStore: slow,
			model:       upPinger(),
			timeout:     50 * time.Millisecond,
			logger:      testutil.DiscardLogger(),
		}

		start := time.Now()
		w := httptest.NewRecorder()
		hh.check(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Less(t, time.Since(start), time.Second)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestHealthRoutesBypassRateLimit(t *testing.T) {
	srv := newTestServer(t, &stubService{resp: okResponse()})

	// Well beyond the configured budget; health must never 429.
	for range 150 {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestReadiness_NoPool(t *testing.T) {
	w := httptest.NewRecorder()
	readiness(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ready")
}
