// Package middleware provides request-scoped logging, tracing, and rate limiting for the HTTP server.
package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"inkwell/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Logger is the global structured logger instance used throughout the application.
var Logger *slog.Logger

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
	TraceIDKey   contextKey = "trace_id"
	// ConnIDKey identifies a relay connection for the lifetime of its socket.
	ConnIDKey contextKey = "conn_id"
)

// scopedKeys are copied from the context onto every record, in this order.
var scopedKeys = []contextKey{RequestIDKey, TraceIDKey, UserIDKey, ConnIDKey}

// ctxHandler fills in request, user and connection attributes from the
// context. Attributes already set at the call site win.
type ctxHandler struct {
	slog.Handler
}

func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx == nil {
		return h.Handler.Handle(ctx, r)
	}

	var present map[string]bool
	r.Attrs(func(a slog.Attr) bool {
		if present == nil {
			present = make(map[string]bool)
		}
		present[a.Key] = true
		return true
	})

	for _, key := range scopedKeys {
		name := string(key)
		if present[name] {
			continue
		}
		switch v := ctx.Value(key).(type) {
		case string:
			if v != "" {
				r.AddAttrs(slog.String(name, v))
			}
		case uint:
			if v != 0 {
				r.AddAttrs(slog.Uint64(name, uint64(v)))
			}
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

// NewLogger builds the application logger writing to w. Production emits
// JSON; everything else gets the text handler. LOG_LEVEL=debug lowers the level.
func NewLogger(w io.Writer, env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(&ctxHandler{handler})
}

func init() {
	Logger = NewLogger(os.Stdout, os.Getenv("APP_ENV"))
	observability.SetLogger(Logger)
}

// WithUserID returns ctx annotated with the authenticated user's ID for logging.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithConnection returns ctx annotated with a relay connection id, so relay
// reads, edits and disconnects can be correlated per socket.
func WithConnection(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, ConnIDKey, connID)
}

// ConnectionContext starts a context for a long-lived relay socket. The
// upgrade request's identifiers are carried over; the request context itself
// is not, because it ends when the handshake completes.
func ConnectionContext(userID uint, requestID string) context.Context {
	ctx := WithUserID(context.Background(), userID)
	if requestID != "" {
		ctx = context.WithValue(ctx, RequestIDKey, requestID)
	}
	return ctx
}

// ContextMiddleware injects request ID and trace ID from Fiber locals into the request context.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		if rid, ok := c.Locals("requestid").(string); ok {
			ctx = context.WithValue(ctx, RequestIDKey, rid)
		}
		if uid, ok := c.Locals("userID").(uint); ok {
			ctx = WithUserID(ctx, uid)
		}
		if tid, ok := c.Locals("traceID").(string); ok {
			ctx = context.WithValue(ctx, TraceIDKey, tid)
		}

		c.SetUserContext(ctx)
		return c.Next()
	}
}

// quietPrefixes are polled by orchestrators and scrapers; they log at debug.
var quietPrefixes = []string{"/health", "/metrics"}

func isQuiet(path string) bool {
	for _, p := range quietPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// responseStatus is the status the client will see. A returned error has not
// reached the error handler yet, so its code is taken from the error.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

func websocketUpgrade(c *fiber.Ctx) bool {
	return strings.EqualFold(c.Get(fiber.HeaderUpgrade), "websocket")
}

// routeOf returns the matched route template, or "" when the router found
// nothing and answered 404 itself.
func routeOf(c *fiber.Ctx, err error) string {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code == fiber.StatusNotFound {
		return ""
	}
	if r := c.Route(); r != nil {
		return r.Path
	}
	return ""
}

// StructuredLogger logs one line per request. Server errors log at error,
// client errors at warn, and health or metrics polls at debug.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		upgrade := websocketUpgrade(c)

		err := c.Next()

		status := responseStatus(c, err)
		fields := []any{
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
		}
		if route := routeOf(c, err); route != "" {
			fields = append(fields, slog.String("route", route))
		}
		if upgrade {
			fields = append(fields, slog.Bool("websocket", true))
		}
		if ua := c.Get(fiber.HeaderUserAgent); ua != "" {
			fields = append(fields, slog.String("user_agent", ua))
		}
		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
		}

		level := slog.LevelInfo
		switch {
		case status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		case isQuiet(c.Path()):
			level = slog.LevelDebug
		}
		Logger.Log(c.UserContext(), level, "request", fields...)

		return err
	}
}
