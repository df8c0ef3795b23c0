package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// ContentCache holds the concatenated document text of a course so prompt
// assembly does not re-read every document row on each turn. Invalidated
// whenever a course's documents change.
type ContentCache struct {
	client     *redisv9.Client
	contentTTL time.Duration
}

func NewContentCache(client *redisv9.Client, contentTTL time.Duration) *ContentCache {
	if contentTTL <= 0 {
		contentTTL = 5 * time.Minute
	}
	return &ContentCache{
		client:     client,
		contentTTL: contentTTL,
	}
}

func (c *ContentCache) GetContent(ctx context.Context, courseID uint) (string, bool, error) {
	raw, err := c.client.Get(ctx, c.contentKey(courseID)).Result()
	if err == redisv9.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get course content failed: %w", err)
	}
	return raw, true, nil
}

func (c *ContentCache) SetContent(ctx context.Context, courseID uint, content string) error {
	if err := c.client.Set(ctx, c.contentKey(courseID), content, c.contentTTL).Err(); err != nil {
		return fmt.Errorf("redis set course content failed: %w", err)
	}
	return nil
}

func (c *ContentCache) DeleteContent(ctx context.Context, courseID uint) error {
	if err := c.client.Del(ctx, c.contentKey(courseID)).Err(); err != nil {
		return fmt.Errorf("redis delete course content failed: %w", err)
	}
	return nil
}

func (c *ContentCache) contentKey(courseID uint) string {
	return fmt.Sprintf("course:content:%d", courseID)
}
