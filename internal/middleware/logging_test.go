package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogs swaps the package logger for a JSON logger writing to a buffer.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	t.Setenv("LOG_LEVEL", "")

	var buf bytes.Buffer
	prev := Logger
	Logger = NewLogger(&buf, "production")
	t.Cleanup(func() { Logger = prev })
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		out = append(out, rec)
	}
	return out
}

func TestCtxHandler_RelayConnectionAttributes(t *testing.T) {
	buf := captureLogs(t)

	ctx := ConnectionContext(7, "req-1")
	ctx = WithConnection(ctx, "conn-abc")
	Logger.InfoContext(ctx, "edit relayed", slog.String("room", "12"))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "conn-abc", lines[0]["conn_id"])
	assert.Equal(t, "req-1", lines[0]["request_id"])
	assert.EqualValues(t, 7, lines[0]["user_id"])
	assert.Equal(t, "12", lines[0]["room"])
	assert.NotContains(t, lines[0], "trace_id")
}

func TestCtxHandler_CallSiteWins(t *testing.T) {
	buf := captureLogs(t)

	ctx := WithConnection(WithUserID(context.Background(), 7), "from-ctx")
	Logger.InfoContext(ctx, "connected",
		slog.String("conn_id", "explicit"),
		slog.Uint64("user_id", 7),
	)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, `"conn_id"`))
	assert.Equal(t, 1, strings.Count(out, `"user_id"`))
	assert.Contains(t, out, `"conn_id":"explicit"`)
}

func TestCtxHandler_EmptyValuesSkipped(t *testing.T) {
	buf := captureLogs(t)

	Logger.InfoContext(ConnectionContext(0, ""), "anonymous")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], "user_id")
	assert.NotContains(t, lines[0], "request_id")
}

func TestStructuredLogger_Levels(t *testing.T) {
	buf := captureLogs(t)

	app := fiber.New()
	app.Use(StructuredLogger())
	app.Get("/blogs/:id", func(c *fiber.Ctx) error {
		c.SetUserContext(WithUserID(c.UserContext(), 9))
		return c.SendString("ok")
	})
	app.Get("/broken", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusServiceUnavailable, "db down")
	})
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/ws", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusUpgradeRequired) })

	for _, path := range []string{"/blogs/42", "/broken", "/missing", "/health"} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil), -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}
	req := httptest.NewRequest(fiber.MethodGet, "/ws", nil)
	req.Header.Set(fiber.HeaderUpgrade, "websocket")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	_ = resp.Body.Close()

	lines := decodeLines(t, buf)
	// The health poll is below the info level.
	require.Len(t, lines, 4)

	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "/blogs/:id", lines[0]["route"])
	assert.Equal(t, "/blogs/42", lines[0]["path"])
	assert.EqualValues(t, 9, lines[0]["user_id"])

	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.EqualValues(t, 503, lines[1]["status"])
	assert.Equal(t, "db down", lines[1]["error"])

	assert.Equal(t, "WARN", lines[2]["level"])
	assert.EqualValues(t, 404, lines[2]["status"])
	assert.NotContains(t, lines[2], "route")

	assert.Equal(t, "WARN", lines[3]["level"])
	assert.Equal(t, true, lines[3]["websocket"])
	assert.Equal(t, "/ws", lines[3]["route"])
}
