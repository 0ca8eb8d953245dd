package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealthz(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
}

func TestServerRoutes(t *testing.T) {
	t.Parallel()

	srv := NewServer("127.0.0.1:0", nil)

	for _, route := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		srv.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, route, nil))
		require.Equal(t, http.StatusOK, rec.Code, "route %s", route)
	}

	rec := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerShutdownWithoutStart(t *testing.T) {
	t.Parallel()

	srv := NewServer("127.0.0.1:0", nil)
	require.NoError(t, srv.Shutdown(context.Background()))
}
