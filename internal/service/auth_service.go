package service

import (
	"context"
	"errors"
	"strings"

	"inkwell/internal/auth"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenManager
	users    *UserService
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token  string       `json:"token"`
	UserID uint         `json:"userId"`
	User   *models.User `json:"user"`
}

func NewAuthService(userRepo repository.UserRepository, tokens *auth.TokenManager, users *UserService) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens, users: users}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := validation.NormalizeEmail(in.Email)

	if name == "" || email == "" || in.Password == "" {
		return nil, models.NewValidationError("Name, email, and password are required")
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		observability.AuthEvents.WithLabelValues("register", "conflict").Inc()
		return nil, models.NewConflictError("Email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: string(hash),
		Role:     models.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	observability.AuthEvents.WithLabelValues("register", "success").Inc()
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		observability.AuthEvents.WithLabelValues("login", "failure").Inc()
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	observability.AuthEvents.WithLabelValues("login", "success").Inc()
	return &LoginResult{Token: token, UserID: user.ID, User: user}, nil
}

// Logout revokes the token. Without Redis the token stays valid until expiry.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Verify(ctx, token)
	if err != nil {
		return err
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		if errors.Is(err, auth.ErrRevocationUnavailable) {
			middleware.Logger.WarnContext(ctx, "logout without redis; token remains valid until expiry")
			return nil
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Authenticate verifies a bearer token and returns the caller's current identity.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.Identity, error) {
	claims, err := s.tokens.Verify(ctx, token)
	if err != nil {
		return models.Identity{}, err
	}
	return s.users.Identity(ctx, claims.UserID)
}

// AuthenticateTicket redeems a WebSocket ticket and returns the caller's current identity.
func (s *AuthService) AuthenticateTicket(ctx context.Context, ticket string) (models.Identity, error) {
	userID, err := s.tokens.RedeemTicket(ctx, ticket)
	if err != nil {
		return models.Identity{}, err
	}
	return s.users.Identity(ctx, userID)
}

func (s *AuthService) IssueTicket(ctx context.Context, caller models.Identity) (string, error) {
	ticket, err := s.tokens.IssueTicket(ctx, caller.UserID)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return ticket, nil
}
