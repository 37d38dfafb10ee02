package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix = "user:%d"
	BlogKeyPrefix = "blog:%d"
	BlogListKey   = "blogs:all"
)

const (
	UserTTL     = 5 * time.Minute
	BlogTTL     = 10 * time.Minute
	BlogListTTL = 2 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func BlogKey(blogID uint) string {
	return fmt.Sprintf(BlogKeyPrefix, blogID)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	// Blog views embed user name and email.
	Invalidate(ctx, UserKey(userID), BlogListKey)
}

func InvalidateBlog(ctx context.Context, blogID uint) {
	Invalidate(ctx, BlogKey(blogID), BlogListKey)
}
