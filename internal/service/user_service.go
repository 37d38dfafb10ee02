package service

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// ListUsers returns the public directory: ids and names only.
func (s *UserService) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, users[i].Summary())
	}
	return out, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// Identity resolves the current role of userID. A deleted or unknown user is unauthorized.
func (s *UserService) Identity(ctx context.Context, userID uint) (models.Identity, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return models.Identity{}, models.NewUnauthorizedError("User no longer exists")
		}
		return models.Identity{}, err
	}
	return models.Identity{UserID: user.ID, Role: user.Role}, nil
}

func (s *UserService) SetRole(ctx context.Context, targetID uint, role models.Role, caller models.Identity) (*models.User, error) {
	if !caller.IsAdmin() {
		return nil, models.NewForbiddenError("Admin access required")
	}
	if !role.Valid() {
		return nil, models.NewValidationError("role must be 'user' or 'admin'")
	}
	if err := s.userRepo.UpdateRole(ctx, targetID, role); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, targetID)
}
