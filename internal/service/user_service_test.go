package service

import (
	"context"
	"encoding/json"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_ListUsers_ProjectsIDAndName(t *testing.T) {
	t.Parallel()
	repo := noopUserRepo()
	repo.listFn = func(context.Context) ([]models.User, error) {
		return []models.User{
			{ID: 1, Name: "Ada", Email: "ada@example.com", Password: "hash", Role: models.RoleAdmin},
			{ID: 2, Name: "Bob", Email: "bob@example.com", Password: "hash", Role: models.RoleUser},
		}, nil
	}

	users, err := NewUserService(repo).ListUsers(context.Background())
	require.NoError(t, err)

	raw, err := json.Marshal(users)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"name":"Ada"},{"id":2,"name":"Bob"}]`, string(raw))
}

func TestUserService_SetRole(t *testing.T) {
	t.Parallel()
	admin := models.Identity{UserID: 1, Role: models.RoleAdmin}

	t.Run("non-admin is forbidden", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		called := false
		repo.updateRoleFn = func(context.Context, uint, models.Role) error { called = true; return nil }

		_, err := NewUserService(repo).SetRole(context.Background(), 2, models.RoleAdmin,
			models.Identity{UserID: 3, Role: models.RoleUser})
		assertAppErrorCode(t, err, models.CodeForbidden)
		assert.False(t, called)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		t.Parallel()
		_, err := NewUserService(noopUserRepo()).SetRole(context.Background(), 2, "owner", admin)
		assertAppErrorCode(t, err, models.CodeValidation)
	})

	t.Run("missing target", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.updateRoleFn = func(_ context.Context, id uint, _ models.Role) error {
			return models.NewNotFoundError("User", id)
		}
		_, err := NewUserService(repo).SetRole(context.Background(), 9, models.RoleAdmin, admin)
		assertAppErrorCode(t, err, models.CodeNotFound)
	})

	t.Run("promotes", func(t *testing.T) {
		t.Parallel()
		role := models.RoleUser
		repo := noopUserRepo()
		repo.updateRoleFn = func(_ context.Context, _ uint, r models.Role) error { role = r; return nil }
		repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Name: "Bob", Role: role}, nil
		}

		user, err := NewUserService(repo).SetRole(context.Background(), 2, models.RoleAdmin, admin)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, user.Role)
	})
}

func TestUserService_Identity_UnknownUser(t *testing.T) {
	t.Parallel()
	repo := noopUserRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return nil, models.NewNotFoundError("User", id)
	}

	_, err := NewUserService(repo).Identity(context.Background(), 5)
	assertAppErrorCode(t, err, models.CodeUnauthorized)
}
