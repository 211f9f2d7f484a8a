package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with queue-specific helpers
type Logger struct {
	*slog.Logger
}

// New creates a logger writing to stdout, level taken from LOG_LEVEL
func New() *Logger {
	return NewWithWriter(os.Stdout, getLogLevel(os.Getenv("LOG_LEVEL")))
}

// NewWithWriter creates a logger writing to w
func NewWithWriter(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// text for development, JSON in release
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("request_id", requestID)),
	}
}

// WithOutlet scopes the logger to one outlet
func (l *Logger) WithOutlet(outletID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("outlet_id", outletID)),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Queue logging methods

// LogEntryAdmitted logs a new walk-in admission
func (l *Logger) LogEntryAdmitted(ctx context.Context, entryID, outletID, code string, position, estimate int) {
	l.Logger.InfoContext(ctx,
		"Queue Entry Admitted",
		slog.String("entry_id", entryID),
		slog.String("outlet_id", outletID),
		slog.String("code", code),
		slog.Int("position", position),
		slog.Int("estimated_wait_minutes", estimate),
	)
}

// LogStatusChanged logs a queue entry status transition
func (l *Logger) LogStatusChanged(ctx context.Context, entryID, from, to, actor string) {
	l.Logger.InfoContext(ctx,
		"Queue Entry Status Changed",
		slog.String("entry_id", entryID),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("actor", actor),
	)
}

// LogReorder logs a completed renumbering of an outlet queue
func (l *Logger) LogReorder(ctx context.Context, outletID string, waiting, held int, duration time.Duration) {
	l.Logger.DebugContext(ctx,
		"Queue Reordered",
		slog.String("outlet_id", outletID),
		slog.Int("waiting", waiting),
		slog.Int("held", held),
		slog.Duration("duration", duration),
	)
}

// LogNotificationFailed logs a notification that could not be dispatched
func (l *Logger) LogNotificationFailed(ctx context.Context, kind, entryID string, err error) {
	l.Logger.WarnContext(ctx,
		"Queue Notification Failed",
		slog.String("kind", kind),
		slog.String("entry_id", entryID),
		slog.String("error", err.Error()),
	)
}

// LogCleanup logs the end-of-day sweep for an outlet
func (l *Logger) LogCleanup(ctx context.Context, outletID string, closed int) {
	l.Logger.InfoContext(ctx,
		"End Of Day Cleanup",
		slog.String("outlet_id", outletID),
		slog.Int("closed_entries", closed),
	)
}

// LogModelRetrained logs a wait-time model refresh
func (l *Logger) LogModelRetrained(ctx context.Context, outletID string, samples, groups int) {
	l.Logger.InfoContext(ctx,
		"Wait Model Retrained",
		slog.String("outlet_id", outletID),
		slog.Int("samples", samples),
		slog.Int("party_size_groups", groups),
	)
}

// Security logging methods

// LogAuthFailure logs failed authentication
func (l *Logger) LogAuthFailure(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Authentication Failure",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
