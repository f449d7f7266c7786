package logger_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appcanvas/appcanvas/pkg/logger"
)

func TestLog(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).Make()
	require.NoError(t, err)
	require.NotNil(t, templogger)
	require.Equal(t, buff.Len(), 0)
	templogger.Logger.Info().Msg("Test")
	require.Contains(t, buff.String(), "Test")
}

func TestLogLevel(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	l, err := logger.New().FromBuffer(buff).WithLevel("WARN").Make()
	require.NoError(t, err)

	l.Logger.Info().Msg("hidden")
	assert.Zero(t, buff.Len())
	l.Logger.Warn().Msg("shown")
	assert.Contains(t, buff.String(), "shown")
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appcanvas.log")
	l, err := logger.New().FromPath(path).Make()
	require.NoError(t, err)
	l.Logger.Info().Msg("to file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestMiddleware(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	l, err := logger.New().FromBuffer(buff).Make()
	require.NoError(t, err)

	h := logger.Middleware(l.Logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromRequest(r).Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(logger.RequestIDHeader))
	out := buff.String()
	assert.Contains(t, out, "inside")
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"request_id"`)
}
