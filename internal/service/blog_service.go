// Package service implements the application's use cases on top of the repositories.
package service

import (
	"context"
	"strconv"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/policy"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

type BlogService struct {
	blogRepo repository.BlogRepository
	userRepo repository.UserRepository
}

type CreateBlogInput struct {
	Title         string
	Content       string
	Tags          []string
	Collaborators []uint
}

// UpdateBlogInput holds the fields a caller may change. Nil fields keep their stored value.
type UpdateBlogInput struct {
	BlogID        uint
	Title         *string
	Content       *string
	Tags          *[]string
	Collaborators *[]uint
}

func NewBlogService(blogRepo repository.BlogRepository, userRepo repository.UserRepository) *BlogService {
	return &BlogService{blogRepo: blogRepo, userRepo: userRepo}
}

// resolveCollaborators dedupes ids and loads the users, failing when any id is unknown.
func (s *BlogService) resolveCollaborators(ctx context.Context, ids []uint) ([]models.User, error) {
	ids, err := validation.DedupeIDs(ids)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(users) != len(ids) {
		found := make(map[uint]struct{}, len(users))
		for i := range users {
			found[users[i].ID] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				return nil, models.NewValidationError("Unknown collaborator id " + strconv.FormatUint(uint64(id), 10))
			}
		}
	}
	return users, nil
}

func (s *BlogService) CreateBlog(ctx context.Context, in CreateBlogInput, caller models.Identity) (*models.BlogView, error) {
	ctx, span := observability.StartServiceSpan(ctx, "BlogService", "CreateBlog")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	if err = validation.ValidateTitle(in.Title); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err = validation.ValidateContent(in.Content); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	tags, err := validation.NormalizeTags(in.Tags)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	collaborators, err := s.resolveCollaborators(ctx, in.Collaborators)
	if err != nil {
		return nil, err
	}

	blog := &models.Blog{
		Title:         in.Title,
		Content:       in.Content,
		Tags:          tags,
		AuthorID:      caller.UserID,
		Collaborators: collaborators,
	}
	if err = s.blogRepo.Create(ctx, blog); err != nil {
		return nil, err
	}

	created, err := s.blogRepo.GetByID(ctx, blog.ID)
	if err != nil {
		return nil, err
	}
	view := created.View()
	return &view, nil
}

func (s *BlogService) GetBlog(ctx context.Context, id uint) (*models.BlogView, error) {
	var view models.BlogView
	err := cache.Aside(ctx, cache.BlogKey(id), &view, cache.BlogTTL, func() error {
		blog, err := s.blogRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		view = blog.View()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *BlogService) ListBlogs(ctx context.Context) ([]models.BlogView, error) {
	var views []models.BlogView
	err := cache.Aside(ctx, cache.BlogListKey, &views, cache.BlogListTTL, func() error {
		blogs, err := s.blogRepo.List(ctx)
		if err != nil {
			return err
		}
		views = make([]models.BlogView, 0, len(blogs))
		for i := range blogs {
			views = append(views, blogs[i].View())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// UpdateBlog merges the allow-listed fields of in onto the stored blog. The
// author never changes. Concurrent updates are last-write-wins.
func (s *BlogService) UpdateBlog(ctx context.Context, in UpdateBlogInput, caller models.Identity) (*models.BlogView, error) {
	ctx, span := observability.StartServiceSpan(ctx, "BlogService", "UpdateBlog")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	blog, err := s.blogRepo.GetByID(ctx, in.BlogID)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutate(blog, caller) {
		err = models.NewForbiddenError("You are not allowed to edit this blog")
		return nil, err
	}

	if in.Title != nil {
		if err = validation.ValidateTitle(*in.Title); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		blog.Title = *in.Title
	}
	if in.Content != nil {
		if err = validation.ValidateContent(*in.Content); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		blog.Content = *in.Content
	}
	if in.Tags != nil {
		tags, tagErr := validation.NormalizeTags(*in.Tags)
		if tagErr != nil {
			err = models.NewValidationError(tagErr.Error())
			return nil, err
		}
		blog.Tags = tags
	}

	var collaborators []models.User
	if in.Collaborators != nil {
		if collaborators, err = s.resolveCollaborators(ctx, *in.Collaborators); err != nil {
			return nil, err
		}
	}

	if err = s.blogRepo.Update(ctx, blog, collaborators); err != nil {
		return nil, err
	}

	updated, err := s.blogRepo.GetByID(ctx, blog.ID)
	if err != nil {
		return nil, err
	}
	view := updated.View()
	return &view, nil
}

func (s *BlogService) DeleteBlog(ctx context.Context, id uint, caller models.Identity) error {
	blog, err := s.blogRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDelete(blog, caller) {
		return models.NewForbiddenError("Only admins can delete blogs")
	}
	return s.blogRepo.Delete(ctx, blog)
}

// AuthorizeEdit reports whether caller may edit the blog, without loading it through the cache.
func (s *BlogService) AuthorizeEdit(ctx context.Context, id uint, caller models.Identity) error {
	blog, err := s.blogRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanMutate(blog, caller) {
		return models.NewForbiddenError("You are not allowed to edit this blog")
	}
	return nil
}

// Exists reports NotFound when no blog has id.
func (s *BlogService) Exists(ctx context.Context, id uint) error {
	_, err := s.GetBlog(ctx, id)
	return err
}
