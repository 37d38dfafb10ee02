// Package bootstrap prepares the runtime dependencies shared by the server and tooling commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// InitRuntime connects to the database and Redis and ensures the development
// admin account when it is enabled. The Redis client is nil when Redis is unreachable.
func InitRuntime(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureDevAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
	}

	return db, r, nil
}

// EnsureDevAdmin creates or promotes the development admin account. It only
// acts in the development environment with DEV_BOOTSTRAP_ADMIN enabled, which
// is the one way to obtain a first admin without touching the database.
func EnsureDevAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapAdmin {
		return nil
	}

	name := strings.TrimSpace(cfg.DevAdminName)
	if name == "" {
		name = "Inkwell Admin"
	}
	email := validation.NormalizeEmail(cfg.DevAdminEmail)
	if email == "" {
		email = "admin@inkwell.local"
	}
	password := cfg.DevAdminPassword
	if password == "" {
		return errors.New("DEV_ADMIN_PASSWORD must be set when DEV_BOOTSTRAP_ADMIN is enabled")
	}
	if err := validation.ValidatePassword(password); err != nil {
		return fmt.Errorf("DEV_ADMIN_PASSWORD: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	created := false
	var promoted uint
	if err := db.Transaction(func(tx *gorm.DB) error {
		var admin models.User
		findErr := tx.Where("email = ?", email).First(&admin).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			admin = models.User{
				Name:     name,
				Email:    email,
				Password: string(hashedPassword),
				Role:     models.RoleAdmin,
			}
			created = true
			return tx.Create(&admin).Error
		case findErr != nil:
			return findErr
		case admin.Role != models.RoleAdmin:
			promoted = admin.ID
			return tx.Model(&models.User{}).Where("id = ?", admin.ID).Update("role", models.RoleAdmin).Error
		default:
			return nil
		}
	}); err != nil {
		return err
	}
	// Cached profiles carry the role, drop the stale one.
	if promoted != 0 {
		cache.InvalidateUser(context.Background(), promoted)
	}

	middleware.Logger.Info("development admin bootstrap ensured",
		slog.String("email", email),
		slog.Bool("created", created),
		slog.Bool("promoted", promoted != 0),
	)
	return nil
}
