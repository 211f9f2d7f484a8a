package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walkin/internal/shared/apperr"
	"walkin/pkg/logger"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := logger.GetDefault()
	logger.SetDefault(logger.NewWithWriter(&buf, slog.LevelInfo))
	t.Cleanup(func() { logger.SetDefault(previous) })
	return &buf
}

func respond(t *testing.T, err error) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/v1/queue/entries/:entry_id/cancel", func(c *gin.Context) {
		RespondError(c, "Failed to cancel entry", err)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/queue/entries/abc/cancel", nil))

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestRespondErrorLogsServerFailures(t *testing.T) {
	logs := captureLogs(t)

	w, env := respond(t, errors.New("failed to update position: connection reset"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "error", env.Status)
	assert.Contains(t, logs.String(), "HTTP Error")
	assert.Contains(t, logs.String(), "connection reset")
	assert.Contains(t, logs.String(), "/api/v1/queue/entries/abc/cancel")
}

func TestRespondErrorKeepsRejectionsQuiet(t *testing.T) {
	logs := captureLogs(t)

	w, env := respond(t, fmt.Errorf("4 seats for a party of 6: %w", apperr.ErrCapacityConflict))

	assert.Equal(t, http.StatusConflict, w.Code)
	detail, ok := env.Errors.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, detail["requires_confirmation"])
	assert.Empty(t, logs.String())
}
