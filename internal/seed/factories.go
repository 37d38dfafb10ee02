// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password given to every seeded user.
const DefaultPassword = "password123"

// Options control how seed data is generated.
type Options struct {
	NumUsers    int
	NumBlogs    int
	ShouldClean bool
	// DryRun builds entities with synthetic IDs and never writes.
	DryRun bool
	// SkipBcrypt uses a cheap hash cost for fast local seeding.
	SkipBcrypt bool
	// MaxDays bounds how far back created_at timestamps are spread.
	MaxDays int
	// MaxCollaborators bounds the collaborators attached to each blog.
	MaxCollaborators int
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	hash string
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:     db,
		opts:   opts,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		nextID: 1000,
	}
}

func (f *Factory) passwordHash() (string, error) {
	if f.hash != "" {
		return f.hash, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return "", err
	}
	f.hash = string(hashed)
	return f.hash, nil
}

func (f *Factory) createdAt() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

// BuildUser constructs a user with the "user" role without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.passwordHash()
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	name := gofakeit.Name()
	if len(name) > validation.MaxNameLength {
		name = name[:validation.MaxNameLength]
	}
	user := &models.User{
		Name: name,
		// A numeric suffix keeps generated addresses unique across large runs.
		Email:     validation.NormalizeEmail(fmt.Sprintf("%s.%d@%s", gofakeit.Username(), gofakeit.Number(1000, 9999), gofakeit.DomainName())),
		Password:  hash,
		Role:      models.RoleUser,
		CreatedAt: f.createdAt(),
	}

	for _, override := range overrides {
		override(user)
	}
	return user, nil
}

// CreateUser constructs and persists a sample user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user, err := f.BuildUser(overrides...)
	if err != nil {
		return nil, err
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s <%s>", user.Name, user.Email)
		return user, nil
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildBlog constructs a blog authored by author with up to
// Options.MaxCollaborators collaborators drawn from pool. It is not persisted.
func (f *Factory) BuildBlog(author *models.User, pool []*models.User, overrides ...func(*models.Blog)) *models.Blog {
	title := strings.TrimSuffix(gofakeit.Sentence(gofakeit.Number(3, 8)), ".")
	if len(title) > validation.MaxTitleLength {
		title = title[:validation.MaxTitleLength]
	}

	var paragraphs []string
	for range gofakeit.Number(2, 5) {
		paragraphs = append(paragraphs, "<p>"+gofakeit.Paragraph(1, 4, 12, " ")+"</p>")
	}

	blog := &models.Blog{
		Title:     title,
		Content:   strings.Join(paragraphs, "\n"),
		Tags:      f.tags(),
		AuthorID:  author.ID,
		CreatedAt: f.createdAt(),
	}
	blog.Collaborators = f.collaborators(author, pool)

	for _, override := range overrides {
		override(blog)
	}
	return blog
}

func (f *Factory) tags() []string {
	n := f.rng.Intn(4)
	seen := make(map[string]struct{}, n)
	tags := make([]string, 0, n)
	for len(tags) < n {
		tag := strings.ToLower(gofakeit.HackerNoun())
		if len(tag) > validation.MaxTagLength {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

func (f *Factory) collaborators(author *models.User, pool []*models.User) []models.User {
	limit := f.opts.MaxCollaborators
	if limit <= 0 {
		limit = 3
	}
	if limit > validation.MaxCollaborators {
		limit = validation.MaxCollaborators
	}

	n := f.rng.Intn(limit + 1)
	out := make([]models.User, 0, n)
	for _, idx := range f.rng.Perm(len(pool)) {
		if len(out) == n {
			break
		}
		candidate := pool[idx]
		if candidate.ID == author.ID {
			continue
		}
		out = append(out, *candidate)
	}
	return out
}

// CreateBlog constructs and persists a sample blog together with its collaborator links.
func (f *Factory) CreateBlog(author *models.User, pool []*models.User, overrides ...func(*models.Blog)) (*models.Blog, error) {
	blog := f.BuildBlog(author, pool, overrides...)

	if f.opts.DryRun {
		f.nextID++
		blog.ID = f.nextID
		log.Printf("[dry-run] CreateBlog: %q by user %d with %d collaborators", blog.Title, author.ID, len(blog.Collaborators))
		return blog, nil
	}
	if err := f.db.Omit("Collaborators.*").Create(blog).Error; err != nil {
		return nil, err
	}
	return blog, nil
}
