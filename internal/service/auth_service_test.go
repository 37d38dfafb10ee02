package service

import (
	"context"
	"testing"

	"inkwell/internal/auth"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "service-test-secret-at-least-32-chars"

type services struct {
	userRepo repository.UserRepository
	auth     *AuthService
	users    *UserService
	blogs    *BlogService
}

func newIntegrationServices(t *testing.T) services {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	_, rdb := testutil.NewRedis(t)

	userRepo := repository.NewUserRepository(db)
	blogRepo := repository.NewBlogRepository(db)
	users := NewUserService(userRepo)
	return services{
		userRepo: userRepo,
		auth:     NewAuthService(userRepo, auth.NewTokenManager(testSecret, rdb), users),
		users:    users,
		blogs:    NewBlogService(blogRepo, userRepo),
	}
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc := NewAuthService(noopUserRepo(), auth.NewTokenManager(testSecret, nil), NewUserService(noopUserRepo()))

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"missing fields", RegisterInput{}},
		{"short name", RegisterInput{Name: "A", Email: "a@example.com", Password: "password123"}},
		{"bad email", RegisterInput{Name: "Ada", Email: "not-an-email", Password: "password123"}},
		{"weak password", RegisterInput{Name: "Ada", Email: "a@example.com", Password: "short"}},
		{"password without digit", RegisterInput{Name: "Ada", Email: "a@example.com", Password: "passwordonly"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			assertAppErrorCode(t, err, models.CodeValidation)
		})
	}
}

func TestAuthService_RegisterLoginLogout(t *testing.T) {
	s := newIntegrationServices(t)
	ctx := context.Background()

	user, err := s.auth.Register(ctx, RegisterInput{Name: "Ada", Email: " Ada@Example.com ", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "password123", user.Password)

	_, err = s.auth.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "password123"})
	assertAppErrorCode(t, err, models.CodeConflict)

	_, err = s.auth.Login(ctx, "ada@example.com", "wrong-pass1")
	assertAppErrorCode(t, err, models.CodeUnauthorized)
	_, err = s.auth.Login(ctx, "nobody@example.com", "password123")
	assertAppErrorCode(t, err, models.CodeUnauthorized)

	res, err := s.auth.Login(ctx, "ADA@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.UserID)
	assert.NotEmpty(t, res.Token)

	identity, err := s.auth.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, models.Identity{UserID: user.ID, Role: models.RoleUser}, identity)

	require.NoError(t, s.auth.Logout(ctx, res.Token))
	_, err = s.auth.Authenticate(ctx, res.Token)
	assertAppErrorCode(t, err, models.CodeUnauthorized)
}

func TestAuthService_Tickets(t *testing.T) {
	s := newIntegrationServices(t)
	ctx := context.Background()

	user, err := s.auth.Register(ctx, RegisterInput{Name: "Bob", Email: "bob@example.com", Password: "password123"})
	require.NoError(t, err)

	ticket, err := s.auth.IssueTicket(ctx, models.Identity{UserID: user.ID, Role: user.Role})
	require.NoError(t, err)

	identity, err := s.auth.AuthenticateTicket(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)

	_, err = s.auth.AuthenticateTicket(ctx, ticket)
	assertAppErrorCode(t, err, models.CodeUnauthorized)
}

// A creates a blog, B is refused, an admin promotes B, and B's retry succeeds
// with the token B already holds.
func TestPromotionScenario(t *testing.T) {
	s := newIntegrationServices(t)
	ctx := context.Background()

	register := func(name, email string) *LoginResult {
		_, err := s.auth.Register(ctx, RegisterInput{Name: name, Email: email, Password: "password123"})
		require.NoError(t, err)
		res, err := s.auth.Login(ctx, email, "password123")
		require.NoError(t, err)
		return res
	}
	a := register("Alice", "alice@example.com")
	b := register("Bruno", "bruno@example.com")
	root := register("Root", "root@example.com")
	require.NoError(t, s.userRepo.UpdateRole(ctx, root.UserID, models.RoleAdmin))

	aID, err := s.auth.Authenticate(ctx, a.Token)
	require.NoError(t, err)
	created, err := s.blogs.CreateBlog(ctx, CreateBlogInput{Title: "X", Content: "c", Tags: []string{"t1", "t2"}}, aID)
	require.NoError(t, err)

	got, err := s.blogs.GetBlog(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, a.UserID, got.Author.ID)
	assert.Empty(t, got.Collaborators)

	title := "B was here"
	bID, err := s.auth.Authenticate(ctx, b.Token)
	require.NoError(t, err)
	_, err = s.blogs.UpdateBlog(ctx, UpdateBlogInput{BlogID: created.ID, Title: &title}, bID)
	assertAppErrorCode(t, err, models.CodeForbidden)

	unchanged, err := s.blogs.GetBlog(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", unchanged.Title)

	rootID, err := s.auth.Authenticate(ctx, root.Token)
	require.NoError(t, err)
	promoted, err := s.users.SetRole(ctx, b.UserID, models.RoleAdmin, rootID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)

	bID, err = s.auth.Authenticate(ctx, b.Token)
	require.NoError(t, err)
	updated, err := s.blogs.UpdateBlog(ctx, UpdateBlogInput{BlogID: created.ID, Title: &title}, bID)
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, a.UserID, updated.Author.ID)
}
