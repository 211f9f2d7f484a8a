package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackNotificationSplitsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(notifications.WithLabelValues("TABLE_READY", "failed"))

	TrackNotification("TABLE_READY", errors.New("broker down"))
	TrackNotification("TABLE_READY", nil)

	assert.Equal(t, before+1, testutil.ToFloat64(notifications.WithLabelValues("TABLE_READY", "failed")))
}

func TestSetQueueLength(t *testing.T) {
	SetQueueLength("outlet-1", 7, 2)

	assert.Equal(t, 7.0, testutil.ToFloat64(queueLength.WithLabelValues("outlet-1", "waiting")))
	assert.Equal(t, 2.0, testutil.ToFloat64(queueLength.WithLabelValues("outlet-1", "held")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/ping", "200")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "walkin_http_requests_total"))
}
