package service

import (
	"context"
	"strconv"

	"inkwell/internal/models"
)

// RelayGate authorizes relay room operations. Every call re-reads the
// caller's role so a promotion or demotion applies to open sockets.
type RelayGate struct {
	blogs *BlogService
	users *UserService
}

func NewRelayGate(blogs *BlogService, users *UserService) *RelayGate {
	return &RelayGate{blogs: blogs, users: users}
}

func parseRoom(room string) (uint, error) {
	id, err := strconv.ParseUint(room, 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewValidationError("Invalid blog id")
	}
	return uint(id), nil
}

// CanJoin requires the blog to exist.
func (g *RelayGate) CanJoin(ctx context.Context, userID uint, room string) error {
	id, err := parseRoom(room)
	if err != nil {
		return err
	}
	if _, err := g.users.Identity(ctx, userID); err != nil {
		return err
	}
	return g.blogs.Exists(ctx, id)
}

// CanEdit requires the caller to be allowed to mutate the blog.
func (g *RelayGate) CanEdit(ctx context.Context, userID uint, room string) error {
	id, err := parseRoom(room)
	if err != nil {
		return err
	}
	identity, err := g.users.Identity(ctx, userID)
	if err != nil {
		return err
	}
	return g.blogs.AuthorizeEdit(ctx, id, identity)
}
