// internal/oauth/claims.go
package oauth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	claimKeyPrefix = "portal:oauth:"

	claimPending = "pending"
	claimFailed  = "failed"
	claimDone    = "done:"
)

// Digest is the SHA-256 of an authorization code, hex encoded. It names the
// claim and is sent as the Idempotency-Key.
func Digest(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// ClaimStore records at most one exchange per authorization code.
type ClaimStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewClaimStore(client redis.Cmdable, ttl time.Duration) *ClaimStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ClaimStore{client: client, ttl: ttl}
}

// Outcome is the recorded state of a claim held by someone else.
type Outcome struct {
	Pending bool
	Failed  bool
	Target  string
}

// Claim takes the claim for digest. When it is already held, the recorded
// outcome is returned instead.
func (s *ClaimStore) Claim(ctx context.Context, digest string) (bool, Outcome, error) {
	key := claimKeyPrefix + digest
	ok, err := s.client.SetNX(ctx, key, claimPending, s.ttl).Result()
	if err != nil {
		return false, Outcome{}, fmt.Errorf("claim authorization code: %w", err)
	}
	if ok {
		return true, Outcome{}, nil
	}

	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET
		return false, Outcome{Pending: true}, nil
	}
	if err != nil {
		return false, Outcome{}, fmt.Errorf("read authorization claim: %w", err)
	}
	return false, parseOutcome(value), nil
}

func (s *ClaimStore) Succeed(ctx context.Context, digest, target string) error {
	return s.client.Set(ctx, claimKeyPrefix+digest, claimDone+target, s.ttl).Err()
}

func (s *ClaimStore) Fail(ctx context.Context, digest string) error {
	return s.client.Set(ctx, claimKeyPrefix+digest, claimFailed, s.ttl).Err()
}

func parseOutcome(value string) Outcome {
	switch {
	case value == claimFailed:
		return Outcome{Failed: true}
	case strings.HasPrefix(value, claimDone):
		return Outcome{Target: strings.TrimPrefix(value, claimDone)}
	default:
		return Outcome{Pending: true}
	}
}
