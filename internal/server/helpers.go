package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		return strings.ToLower(param[:len(param)-2]) + " ID"
	}
	return param
}

// respondWithServiceError maps a service error to its HTTP status. Internal
// failures are logged with their cause; clients only see a generic message.
func (s *Server) respondWithServiceError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}

// identityFrom returns the caller identity stored by AuthRequired.
func identityFrom(c *fiber.Ctx) (models.Identity, bool) {
	identity, ok := c.Locals("identity").(models.Identity)
	return identity, ok && identity.UserID != 0
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(c *fiber.Ctx) string {
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// idList decodes a list of user ids sent either as JSON numbers or numeric strings.
type idList []uint

func (l *idList) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*l = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("collaborators must be a list of user ids: %w", err)
	}
	out := make(idList, 0, len(raw))
	for _, item := range raw {
		var n uint64
		if err := json.Unmarshal(item, &n); err != nil {
			var s string
			if serr := json.Unmarshal(item, &s); serr != nil {
				return fmt.Errorf("invalid user id %s", item)
			}
			if n, err = strconv.ParseUint(strings.TrimSpace(s), 10, 32); err != nil {
				return fmt.Errorf("invalid user id %q", s)
			}
		}
		out = append(out, uint(n))
	}
	*l = out
	return nil
}
