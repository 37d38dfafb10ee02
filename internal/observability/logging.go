// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// Logger is the structured logger used by the repository and relay layers.
var Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// SetLogger replaces the package logger, typically with the request-aware one built by middleware.
func SetLogger(l *slog.Logger) {
	if l != nil {
		Logger = l
	}
}

// RepoLogger provides structured logging for repository operations.
type RepoLogger struct {
	table string
}

// NewRepoLogger creates a new RepoLogger for the given table.
func NewRepoLogger(table string) *RepoLogger {
	return &RepoLogger{table: table}
}

// LogWrite logs a repository mutation such as create, update, or delete.
func (l *RepoLogger) LogWrite(ctx context.Context, operation string, id uint) {
	Logger.InfoContext(ctx, "repository write",
		slog.String("table", l.table),
		slog.String("operation", operation),
		slog.Uint64("id", uint64(id)),
	)
}

// LogError logs a repository error.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	Logger.ErrorContext(ctx, "repository error",
		slog.String("table", l.table),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// WSLogger provides structured logging for WebSocket operations.
type WSLogger struct {
	hub string
}

// NewWSLogger creates a new WSLogger for the given hub.
func NewWSLogger(hub string) *WSLogger {
	return &WSLogger{hub: hub}
}

// LogConnect logs a WebSocket connection event.
func (l *WSLogger) LogConnect(ctx context.Context, userID uint, connID string) {
	Logger.InfoContext(ctx, "websocket connected",
		slog.String("hub", l.hub),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("conn_id", connID),
	)
}

// LogDisconnect logs a WebSocket disconnection event.
func (l *WSLogger) LogDisconnect(ctx context.Context, userID uint, connID, reason string) {
	Logger.InfoContext(ctx, "websocket disconnected",
		slog.String("hub", l.hub),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("conn_id", connID),
		slog.String("reason", reason),
	)
}

// LogError logs a WebSocket error event.
func (l *WSLogger) LogError(ctx context.Context, userID uint, room string, err error, event string) {
	Logger.WarnContext(ctx, "websocket error",
		slog.String("hub", l.hub),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("room", room),
		slog.String("event", event),
		slog.String("error", err.Error()),
	)
}
