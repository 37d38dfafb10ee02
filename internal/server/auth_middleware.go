package server

import (
	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

const relayPath = "/ws"

// AuthRequired returns the authentication middleware. It accepts a bearer
// token everywhere and, on the relay endpoint only, a single-use ticket in
// the "ticket" query parameter. The caller's role is re-read on every request.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		var (
			identity models.Identity
			err      error
		)

		token := bearerToken(c)
		ticket := c.Query("ticket")
		switch {
		case token != "":
			identity, err = s.authService.Authenticate(ctx, token)
		case ticket != "" && c.Path() == relayPath:
			identity, err = s.authService.AuthenticateTicket(ctx, ticket)
		default:
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}
		if err != nil {
			return s.respondWithServiceError(c, err)
		}

		c.Locals("userID", identity.UserID)
		c.Locals("identity", identity)
		c.Locals("token", token)
		// Sync to UserContext for logging and downstream services
		c.SetUserContext(middleware.WithUserID(ctx, identity.UserID))

		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that the identity is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := identityFrom(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}
		if !identity.IsAdmin() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}
