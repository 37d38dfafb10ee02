package server

import (
	"log/slog"

	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// LiveEditingFlag gates the relay endpoint. It is on unless configured otherwise.
const LiveEditingFlag = "live_editing"

// RelayUpgrade rejects plain HTTP requests and users for whom live editing is off.
// Must be placed after AuthRequired.
// @Summary Live edit relay
// @Description WebSocket endpoint. Authenticate with a bearer header or a ticket from POST /ws/ticket.
// @Tags relay
// @Security BearerAuth
// @Param ticket query string false "Single-use WebSocket ticket"
// @Success 101
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 426 {object} models.ErrorResponse
// @Router /ws [get]
func (s *Server) RelayUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(models.ErrorResponse{
			Error: "WebSocket upgrade required",
			Code:  models.CodeValidation,
		})
	}

	identity, _ := identityFrom(c)
	if !s.featureFlags.EnabledOr(LiveEditingFlag, identity.UserID, true) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Live editing is not enabled"))
	}

	return c.Next()
}

// RelayHandler serves an authenticated relay connection until the peer leaves.
func (s *Server) RelayHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok || userID == 0 {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"))
			_ = conn.Close()
			return
		}

		rid, _ := conn.Locals("requestid").(string)
		ctx := middleware.ConnectionContext(userID, rid)

		client, err := s.relay.Register(ctx, userID, conn)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "relay registration rejected", slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
			_ = conn.Close()
			return
		}

		ctx = middleware.WithConnection(ctx, client.ID)
		go client.WritePump()
		client.ReadPump(ctx)
	})
}
