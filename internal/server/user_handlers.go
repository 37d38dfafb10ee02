package server

import (
	"strings"

	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetUsers handles GET /users
// @Summary List users
// @Description Public directory of users with id and name only
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.UserSummary
// @Failure 401 {object} models.ErrorResponse
// @Router /users [get]
func (s *Server) GetUsers(c *fiber.Ctx) error {
	users, err := s.userService.ListUsers(c.UserContext())
	if err != nil {
		return s.respondWithServiceError(c, err)
	}
	return c.JSON(users)
}

// GetMyProfile handles GET /users/me
// @Summary Get current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	identity, _ := identityFrom(c)

	user, err := s.userService.GetUserByID(c.UserContext(), identity.UserID)
	if err != nil {
		return s.respondWithServiceError(c, err)
	}
	return c.JSON(user)
}

// UpdateUserRole handles PATCH /users/:id
// @Summary Change a user's role
// @Description Admins only. Role must be "user" or "admin".
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body object{role=string} true "New role"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [patch]
func (s *Server) UpdateUserRole(c *fiber.Ctx) error {
	identity, _ := identityFrom(c)

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	role := models.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	user, err := s.userService.SetRole(c.UserContext(), id, role, identity)
	if err != nil {
		return s.respondWithServiceError(c, err)
	}
	return c.JSON(user)
}
