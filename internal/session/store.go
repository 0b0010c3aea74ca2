// internal/session/store.go
package session

import (
	"context"
	"time"
)

// Store persists session entries. Load of an unknown or expired id returns
// an empty map and no error.
type Store interface {
	Load(ctx context.Context, id string) (map[string]string, error)
	Set(ctx context.Context, id string, values map[string]string, ttl time.Duration) error
	Unset(ctx context.Context, id string, keys []string, ttl time.Duration) error
	Destroy(ctx context.Context, id string) error
}
