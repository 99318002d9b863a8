package cache

import (
	"context"
	"time"
)

// Cache defines the cache interface
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context, pattern string) error
}

// PermissionKey builds the cache key for a user's resolved permission set.
func PermissionKey(userID string) string {
	return "perms:" + userID
}

// ConversationKey builds the cache key for a chatbot session history.
func ConversationKey(sessionID string) string {
	return "chat:" + sessionID
}
