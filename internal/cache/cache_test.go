package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedThing struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAside_MissThenHit(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			calls++
			*dest = cachedThing{ID: 1, Name: "first"}
			return nil
		}
	}

	var a cachedThing
	require.NoError(t, Aside(ctx, UserKey(1), &a, UserTTL, fetch(&a)))
	var b cachedThing
	require.NoError(t, Aside(ctx, UserKey(1), &b, UserTTL, fetch(&b)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, a, b)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := setupMiniredis(t)

	var dest cachedThing
	err := Aside(context.Background(), BlogKey(9), &dest, BlogTTL, func() error {
		return errors.New("db down")
	})

	assert.Error(t, err)
	assert.False(t, mr.Exists(BlogKey(9)))
}

func TestAside_WithoutRedisAlwaysFetches(t *testing.T) {
	SetClient(nil)

	calls := 0
	var dest cachedThing
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), UserKey(2), &dest, UserTTL, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestInvalidateBlog_DropsEntryAndList(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, BlogKey(3), cachedThing{ID: 3}, BlogTTL))
	require.NoError(t, SetJSON(ctx, BlogListKey, []cachedThing{{ID: 3}}, BlogListTTL))

	InvalidateBlog(ctx, 3)

	assert.False(t, mr.Exists(BlogKey(3)))
	assert.False(t, mr.Exists(BlogListKey))
}

func TestInvalidateUser_DropsEntryAndBlogList(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, UserKey(4), cachedThing{ID: 4}, UserTTL))
	require.NoError(t, SetJSON(ctx, BlogListKey, []cachedThing{}, BlogListTTL))

	InvalidateUser(ctx, 4)

	assert.False(t, mr.Exists(UserKey(4)))
	assert.False(t, mr.Exists(BlogListKey))
}
