package service

import (
	"context"
	"errors"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userRepoStub struct {
	getByIDFn    func(context.Context, uint) (*models.User, error)
	getByEmailFn func(context.Context, string) (*models.User, error)
	getByIDsFn   func(context.Context, []uint) ([]models.User, error)
	createFn     func(context.Context, *models.User) error
	updateRoleFn func(context.Context, uint, models.Role) error
	listFn       func(context.Context) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateRole(ctx context.Context, id uint, role models.Role) error {
	return s.updateRoleFn(ctx, id, role)
}
func (s *userRepoStub) List(ctx context.Context) ([]models.User, error) {
	return s.listFn(ctx)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:    func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id, Role: models.RoleUser}, nil },
		getByEmailFn: func(context.Context, string) (*models.User, error) { return nil, nil },
		getByIDsFn: func(_ context.Context, ids []uint) ([]models.User, error) {
			users := make([]models.User, 0, len(ids))
			for _, id := range ids {
				users = append(users, models.User{ID: id})
			}
			return users, nil
		},
		createFn:     func(context.Context, *models.User) error { return nil },
		updateRoleFn: func(context.Context, uint, models.Role) error { return nil },
		listFn:       func(context.Context) ([]models.User, error) { return nil, nil },
	}
}

type blogRepoStub struct {
	createFn  func(context.Context, *models.Blog) error
	getByIDFn func(context.Context, uint) (*models.Blog, error)
	listFn    func(context.Context) ([]models.Blog, error)
	updateFn  func(context.Context, *models.Blog, []models.User) error
	deleteFn  func(context.Context, *models.Blog) error
}

func (s *blogRepoStub) Create(ctx context.Context, blog *models.Blog) error {
	return s.createFn(ctx, blog)
}
func (s *blogRepoStub) GetByID(ctx context.Context, id uint) (*models.Blog, error) {
	return s.getByIDFn(ctx, id)
}
func (s *blogRepoStub) List(ctx context.Context) ([]models.Blog, error) {
	return s.listFn(ctx)
}
func (s *blogRepoStub) Update(ctx context.Context, blog *models.Blog, collaborators []models.User) error {
	return s.updateFn(ctx, blog, collaborators)
}
func (s *blogRepoStub) Delete(ctx context.Context, blog *models.Blog) error {
	return s.deleteFn(ctx, blog)
}

func noopBlogRepo() *blogRepoStub {
	return &blogRepoStub{
		createFn:  func(_ context.Context, b *models.Blog) error { b.ID = 1; return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Blog, error) { return nil, models.NewNotFoundError("Blog", id) },
		listFn:    func(context.Context) ([]models.Blog, error) { return nil, nil },
		updateFn:  func(context.Context, *models.Blog, []models.User) error { return nil },
		deleteFn:  func(context.Context, *models.Blog) error { return nil },
	}
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}
