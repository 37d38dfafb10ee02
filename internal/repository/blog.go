package repository

import (
	"context"
	"errors"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlogRepository defines persistence operations for blogs. Every read
// preloads Author and Collaborators.
type BlogRepository interface {
	Create(ctx context.Context, blog *models.Blog) error
	GetByID(ctx context.Context, id uint) (*models.Blog, error)
	List(ctx context.Context) ([]models.Blog, error)
	// Update saves blog's scalar fields. When collaborators is non-nil the
	// collaborator set is replaced in the same transaction.
	Update(ctx context.Context, blog *models.Blog, collaborators []models.User) error
	Delete(ctx context.Context, blog *models.Blog) error
}

type blogRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewBlogRepository returns a new BlogRepository implementation.
func NewBlogRepository(db *gorm.DB) BlogRepository {
	return &blogRepository{db: db, log: observability.NewRepoLogger("blogs")}
}

func withReferences(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Collaborators", func(db *gorm.DB) *gorm.DB {
		return db.Order("users.id")
	})
}

func (r *blogRepository) Create(ctx context.Context, blog *models.Blog) error {
	defer observability.TrackQuery("create", "blogs")()

	// Collaborators are existing users: link them without upserting their rows.
	if err := r.db.WithContext(ctx).Omit("Author", "Collaborators.*").Create(blog).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.BlogListKey)
	r.log.LogWrite(ctx, "create", blog.ID)
	return nil
}

func (r *blogRepository) GetByID(ctx context.Context, id uint) (*models.Blog, error) {
	defer observability.TrackQuery("get_by_id", "blogs")()

	var blog models.Blog
	if err := withReferences(r.db.WithContext(ctx)).First(&blog, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Blog", id)
		}
		r.log.LogError(ctx, err, "get_by_id")
		return nil, models.NewInternalError(err)
	}
	return &blog, nil
}

func (r *blogRepository) List(ctx context.Context) ([]models.Blog, error) {
	defer observability.TrackQuery("list", "blogs")()

	var blogs []models.Blog
	if err := withReferences(r.db.WithContext(ctx)).Order("created_at DESC, id DESC").Find(&blogs).Error; err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, models.NewInternalError(err)
	}
	return blogs, nil
}

func (r *blogRepository) Update(ctx context.Context, blog *models.Blog, collaborators []models.User) error {
	defer observability.TrackQuery("update", "blogs")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(blog).Error; err != nil {
			return err
		}
		if collaborators == nil {
			return nil
		}
		assoc := tx.Model(blog).Omit("Collaborators.*").Association("Collaborators")
		if len(collaborators) == 0 {
			return assoc.Clear()
		}
		return assoc.Replace(collaborators)
	})
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return models.NewInternalError(err)
	}

	if collaborators != nil {
		blog.Collaborators = collaborators
	}
	cache.InvalidateBlog(ctx, blog.ID)
	r.log.LogWrite(ctx, "update", blog.ID)
	return nil
}

func (r *blogRepository) Delete(ctx context.Context, blog *models.Blog) error {
	defer observability.TrackQuery("delete", "blogs")()

	if err := r.db.WithContext(ctx).Select("Collaborators").Delete(blog).Error; err != nil {
		r.log.LogError(ctx, err, "delete")
		return models.NewInternalError(err)
	}
	cache.InvalidateBlog(ctx, blog.ID)
	r.log.LogWrite(ctx, "delete", blog.ID)
	return nil
}
