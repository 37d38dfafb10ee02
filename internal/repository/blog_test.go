package repository

import (
	"context"
	"testing"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlogRepository_CreateAndGet(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewBlogRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "Ada", "ada@example.com", models.RoleUser)
	collab := testutil.CreateUser(t, db, "Bob", "bob@example.com", models.RoleUser)

	blog := &models.Blog{
		Title:         "X",
		Content:       "<p>hi</p>",
		Tags:          []string{"t1", "t2"},
		AuthorID:      author.ID,
		Collaborators: []models.User{*collab},
	}
	require.NoError(t, repo.Create(ctx, blog))
	require.NotZero(t, blog.ID)

	got, err := repo.GetByID(ctx, blog.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Author.Name)
	assert.Equal(t, []string{"t1", "t2"}, got.Tags)
	require.Len(t, got.Collaborators, 1)
	assert.Equal(t, collab.ID, got.Collaborators[0].ID)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestBlogRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewBlogRepository(db)

	_, err := repo.GetByID(context.Background(), 42)
	assert.Equal(t, models.CodeNotFound, appErrCode(t, err))
}

func TestBlogRepository_ListNewestFirst(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewBlogRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "Ada", "ada@example.com", models.RoleUser)
	for _, title := range []string{"first", "second"} {
		require.NoError(t, repo.Create(ctx, &models.Blog{Title: title, Content: "c", AuthorID: author.ID}))
	}

	blogs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, blogs, 2)
	assert.Equal(t, "second", blogs[0].Title)
	assert.Equal(t, "Ada", blogs[1].Author.Name)
	assert.Empty(t, blogs[0].Collaborators)
}

func TestBlogRepository_UpdateReplacesCollaborators(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	mr, _ := testutil.NewRedis(t)
	repo := NewBlogRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "Ada", "ada@example.com", models.RoleUser)
	bob := testutil.CreateUser(t, db, "Bob", "bob@example.com", models.RoleUser)
	cy := testutil.CreateUser(t, db, "Cy", "cy@example.com", models.RoleUser)

	blog := &models.Blog{Title: "X", Content: "c", AuthorID: author.ID, Collaborators: []models.User{*bob}}
	require.NoError(t, repo.Create(ctx, blog))
	require.NoError(t, cache.SetJSON(ctx, cache.BlogKey(blog.ID), blog.View(), cache.BlogTTL))

	loaded, err := repo.GetByID(ctx, blog.ID)
	require.NoError(t, err)
	loaded.Title = "Y"
	require.NoError(t, repo.Update(ctx, loaded, []models.User{*cy}))
	assert.False(t, mr.Exists(cache.BlogKey(blog.ID)))

	got, err := repo.GetByID(ctx, blog.ID)
	require.NoError(t, err)
	assert.Equal(t, "Y", got.Title)
	require.Len(t, got.Collaborators, 1)
	assert.Equal(t, cy.ID, got.Collaborators[0].ID)

	// nil keeps the set, empty clears it
	got.Content = "d"
	require.NoError(t, repo.Update(ctx, got, nil))
	again, err := repo.GetByID(ctx, blog.ID)
	require.NoError(t, err)
	assert.Len(t, again.Collaborators, 1)

	require.NoError(t, repo.Update(ctx, again, []models.User{}))
	cleared, err := repo.GetByID(ctx, blog.ID)
	require.NoError(t, err)
	assert.Empty(t, cleared.Collaborators)
	assert.Equal(t, author.ID, cleared.AuthorID)
}

func TestBlogRepository_DeleteRemovesLinks(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewBlogRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "Ada", "ada@example.com", models.RoleUser)
	bob := testutil.CreateUser(t, db, "Bob", "bob@example.com", models.RoleUser)

	blog := &models.Blog{Title: "X", Content: "c", AuthorID: author.ID, Collaborators: []models.User{*bob}}
	require.NoError(t, repo.Create(ctx, blog))

	require.NoError(t, repo.Delete(ctx, blog))

	_, err := repo.GetByID(ctx, blog.ID)
	assert.Equal(t, models.CodeNotFound, appErrCode(t, err))

	var links int64
	require.NoError(t, db.Table("blog_collaborators").Where("blog_id = ?", blog.ID).Count(&links).Error)
	assert.Zero(t, links)
}
