// internal/session/session.go
package session

import (
	"sync"

	"github.com/gofiber/fiber/v2"
)

// Keys of the independent string entries a session holds.
const (
	KeyAccessToken     = "access_token"
	KeyRealmID         = "realm_id"
	KeyUserID          = "user_id"
	KeyUserEmail       = "user_email"
	KeyHasSubscription = "has_subscription"

	onboardingPrefix     = "onboarding_completed:"
	onboardingStepPrefix = "onboarding_step:"
	localsKey            = "portal.session"
)

// OnboardingKey is the per-realm completion marker key.
func OnboardingKey(realmID string) string {
	return onboardingPrefix + realmID
}

// OnboardingStepKey is the per-realm key of the current onboarding step.
func OnboardingStepKey(realmID string) string {
	return onboardingStepPrefix + realmID
}

// Session is a read-only view of one browser session. Only Manager mutates it.
type Session struct {
	mu     sync.RWMutex
	id     string
	values map[string]string

	// persisted is false until the first write reaches the store.
	persisted bool
	destroyed bool
}

// New returns an empty session that has not been persisted yet.
func New(id string) *Session {
	return newSession(id, nil, false)
}

func newSession(id string, values map[string]string, persisted bool) *Session {
	if values == nil {
		values = make(map[string]string)
	}
	return &Session{id: id, values: values, persisted: persisted}
}

func (s *Session) get(key string) string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

func (s *Session) AccessToken() string { return s.get(KeyAccessToken) }
func (s *Session) RealmID() string     { return s.get(KeyRealmID) }
func (s *Session) UserID() string      { return s.get(KeyUserID) }
func (s *Session) UserEmail() string   { return s.get(KeyUserEmail) }

func (s *Session) HasSubscription() bool {
	return s.get(KeyHasSubscription) == "true"
}

func (s *Session) OnboardingCompleted(realmID string) bool {
	if realmID == "" {
		return false
	}
	return s.get(OnboardingKey(realmID)) == "true"
}

// OnboardingStep is the last recorded onboarding state name for realmID, if any.
func (s *Session) OnboardingStep(realmID string) string {
	if realmID == "" {
		return ""
	}
	return s.get(OnboardingStepKey(realmID))
}

// Authenticated reports whether both access_token and user_id are present.
func (s *Session) Authenticated() bool {
	return s.AccessToken() != "" && s.UserID() != ""
}

// Values returns a copy of all entries.
func (s *Session) Values() map[string]string {
	out := make(map[string]string)
	if s == nil {
		return out
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

func (s *Session) apply(set map[string]string, unset []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range set {
		s.values[k] = v
	}
	for _, k := range unset {
		delete(s.values, k)
	}
	s.persisted = true
}

func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	s.destroyed = true
}

func (s *Session) state() (persisted, destroyed bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persisted, s.destroyed
}

// Attach makes s the request's session.
func Attach(c *fiber.Ctx, s *Session) {
	c.Locals(localsKey, s)
}

// FromCtx returns the session attached by Manager.Middleware, or nil.
// All accessors are safe on a nil session.
func FromCtx(c *fiber.Ctx) *Session {
	s, _ := c.Locals(localsKey).(*Session)
	return s
}
