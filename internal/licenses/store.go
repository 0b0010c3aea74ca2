// internal/licenses/store.go
package licenses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const stateKeyPrefix = "portal:wizard:"

// StateStore keeps one wizard per (session, realm) until it is saved or expires.
type StateStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewStateStore(client redis.Cmdable, ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &StateStore{client: client, ttl: ttl}
}

func (s *StateStore) key(sessionID, realmID string) string {
	return stateKeyPrefix + sessionID + ":" + realmID
}

// Load returns nil without error when no wizard is open.
func (s *StateStore) Load(ctx context.Context, sessionID, realmID string) (*Wizard, error) {
	data, err := s.client.Get(ctx, s.key(sessionID, realmID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load wizard state: %w", err)
	}

	var w Wizard
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode wizard state: %w", err)
	}
	if w.Selected == nil {
		w.Selected = make(map[string]bool)
	}
	return &w, nil
}

func (s *StateStore) Save(ctx context.Context, sessionID string, w *Wizard) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode wizard state: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sessionID, w.RealmID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save wizard state: %w", err)
	}
	return nil
}

func (s *StateStore) Discard(ctx context.Context, sessionID, realmID string) error {
	if err := s.client.Del(ctx, s.key(sessionID, realmID)).Err(); err != nil {
		return fmt.Errorf("discard wizard state: %w", err)
	}
	return nil
}
