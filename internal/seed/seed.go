package seed

import (
	"context"
	"fmt"
	"log"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// Seeder populates a database with users and collaboratively edited blogs.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	opts    Options
}

// NewSeeder returns a Seeder writing to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts), opts: opts}
}

// ClearAll removes every blog, collaborator link and non-admin user. Admin
// accounts survive so a bootstrapped admin keeps working after a reseed.
// Cache entries for removed rows are dropped once the delete commits.
func (s *Seeder) ClearAll() error {
	if s.opts.DryRun {
		log.Println("[dry-run] ClearAll skipped")
		return nil
	}

	var blogIDs, userIDs []uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Blog{}).Unscoped().Pluck("id", &blogIDs).Error; err != nil {
			return fmt.Errorf("list blogs: %w", err)
		}
		if err := tx.Model(&models.User{}).Where("role <> ?", models.RoleAdmin).Pluck("id", &userIDs).Error; err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		if err := tx.Exec("DELETE FROM blog_collaborators").Error; err != nil {
			return fmt.Errorf("clear collaborators: %w", err)
		}
		if err := tx.Unscoped().Where("1 = 1").Delete(&models.Blog{}).Error; err != nil {
			return fmt.Errorf("clear blogs: %w", err)
		}
		if err := tx.Where("role <> ?", models.RoleAdmin).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("clear users: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(blogIDs)+len(userIDs)+1)
	for _, id := range blogIDs {
		keys = append(keys, cache.BlogKey(id))
	}
	for _, id := range userIDs {
		keys = append(keys, cache.UserKey(id))
	}
	keys = append(keys, cache.BlogListKey)
	cache.Invalidate(context.Background(), keys...)
	return nil
}

// SeedUsers creates n users sharing DefaultPassword.
func (s *Seeder) SeedUsers(n int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for i := range n {
		u, err := s.factory.CreateUser()
		if err != nil {
			return users, fmt.Errorf("create user %d: %w", i+1, err)
		}
		users = append(users, u)
	}
	return users, nil
}

// SeedBlogs creates n blogs with random authors and collaborators from users.
func (s *Seeder) SeedBlogs(users []*models.User, n int) ([]*models.Blog, error) {
	if len(users) == 0 {
		return nil, nil
	}
	blogs := make([]*models.Blog, 0, n)
	for i := range n {
		author := users[s.factory.rng.Intn(len(users))]
		b, err := s.factory.CreateBlog(author, users)
		if err != nil {
			return blogs, fmt.Errorf("create blog %d: %w", i+1, err)
		}
		blogs = append(blogs, b)
	}
	return blogs, nil
}

// Run executes a full seed according to the seeder's options.
func (s *Seeder) Run() error {
	log.Printf("Seeding %d users and %d blogs (clean=%v, dry-run=%v)",
		s.opts.NumUsers, s.opts.NumBlogs, s.opts.ShouldClean, s.opts.DryRun)

	if s.opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
	}

	users, err := s.SeedUsers(s.opts.NumUsers)
	if err != nil {
		return err
	}
	log.Printf("✓ %d users created", len(users))

	blogs, err := s.SeedBlogs(users, s.opts.NumBlogs)
	if err != nil {
		return err
	}
	log.Printf("✓ %d blogs created", len(blogs))
	return nil
}
