// internal/session/manager.go
package session

import (
	"context"
	"time"

	"royalty-portal/internal/common/errors"
	"royalty-portal/internal/common/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ManagerOptions struct {
	CookieName   string
	CookieSecure bool
	TTL          time.Duration
	Logger       logger.Logger
}

// Manager is the only writer of session entries.
type Manager struct {
	store        Store
	cookieName   string
	cookieSecure bool
	ttl          time.Duration
	logger       logger.Logger
}

func NewManager(store Store, opts ManagerOptions) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "portal_session"
	}
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	return &Manager{
		store:        store,
		cookieName:   opts.CookieName,
		cookieSecure: opts.CookieSecure,
		ttl:          opts.TTL,
		logger:       opts.Logger.WithFields(map[string]interface{}{"component": "session"}),
	}
}

// Auth is the identity written after a successful QuickBooks exchange.
type Auth struct {
	AccessToken string
	RealmID     string
	UserID      string
	Email       string
}

// SetAuth stores the identity and drops the subscription flag and onboarding
// steps left by a previous login.
func (m *Manager) SetAuth(ctx context.Context, s *Session, auth Auth) error {
	stale := []string{KeyHasSubscription}
	if auth.RealmID != "" {
		stale = append(stale, OnboardingStepKey(auth.RealmID))
	}
	if prev := s.RealmID(); prev != "" && prev != auth.RealmID {
		stale = append(stale, OnboardingStepKey(prev))
	}

	values := map[string]string{
		KeyAccessToken: auth.AccessToken,
		KeyRealmID:     auth.RealmID,
		KeyUserID:      auth.UserID,
	}
	if auth.Email != "" {
		values[KeyUserEmail] = auth.Email
	}
	if err := m.set(ctx, s, values); err != nil {
		return err
	}
	return m.unset(ctx, s, stale...)
}

// SetHasSubscription writes the flag when true and clears it otherwise.
func (m *Manager) SetHasSubscription(ctx context.Context, s *Session, active bool) error {
	if active {
		return m.set(ctx, s, map[string]string{KeyHasSubscription: "true"})
	}
	return m.unset(ctx, s, KeyHasSubscription)
}

func (m *Manager) MarkOnboardingCompleted(ctx context.Context, s *Session, realmID string) error {
	if realmID == "" {
		return errors.NewSessionMissingError("realm_id is empty")
	}
	return m.set(ctx, s, map[string]string{OnboardingKey(realmID): "true"})
}

func (m *Manager) SetOnboardingStep(ctx context.Context, s *Session, realmID, step string) error {
	if realmID == "" {
		return errors.NewSessionMissingError("realm_id is empty")
	}
	return m.set(ctx, s, map[string]string{OnboardingStepKey(realmID): step})
}

// ClearOnboardingStep forgets the step of realmID so the next visit starts over.
func (m *Manager) ClearOnboardingStep(ctx context.Context, s *Session, realmID string) error {
	if realmID == "" || s.OnboardingStep(realmID) == "" {
		return nil
	}
	return m.unset(ctx, s, OnboardingStepKey(realmID))
}

// Destroy removes every entry. The cookie is expired by the middleware.
func (m *Manager) Destroy(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	if err := m.store.Destroy(ctx, s.id); err != nil {
		return errors.NewSessionStoreError(err)
	}
	s.reset()
	m.logger.Info("session destroyed", map[string]interface{}{"sessionId": s.id})
	return nil
}

func (m *Manager) set(ctx context.Context, s *Session, values map[string]string) error {
	if s == nil {
		return errors.NewSessionMissingError("no session attached to request")
	}
	if err := m.store.Set(ctx, s.id, values, m.ttl); err != nil {
		return errors.NewSessionStoreError(err)
	}
	s.apply(values, nil)
	return nil
}

func (m *Manager) unset(ctx context.Context, s *Session, keys ...string) error {
	if s == nil {
		return errors.NewSessionMissingError("no session attached to request")
	}
	if err := m.store.Unset(ctx, s.id, keys, m.ttl); err != nil {
		return errors.NewSessionStoreError(err)
	}
	s.apply(nil, keys)
	return nil
}

// Middleware attaches the session named by the cookie, or a fresh unsaved
// one. The cookie is only issued once something has been written.
func (m *Manager) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := m.load(c)
		if err != nil {
			return err
		}
		Attach(c, s)

		nextErr := c.Next()

		persisted, destroyed := s.state()
		switch {
		case destroyed:
			c.Cookie(&fiber.Cookie{
				Name:     m.cookieName,
				Value:    "",
				Path:     "/",
				Expires:  time.Unix(0, 0),
				HTTPOnly: true,
				Secure:   m.cookieSecure,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		case persisted:
			c.Cookie(&fiber.Cookie{
				Name:     m.cookieName,
				Value:    s.id,
				Path:     "/",
				Expires:  time.Now().Add(m.ttl),
				HTTPOnly: true,
				Secure:   m.cookieSecure,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		return nextErr
	}
}

func (m *Manager) load(c *fiber.Ctx) (*Session, error) {
	raw := c.Cookies(m.cookieName)
	if _, err := uuid.Parse(raw); raw == "" || err != nil {
		return newSession(uuid.NewString(), nil, false), nil
	}

	values, err := m.store.Load(c.UserContext(), raw)
	if err != nil {
		m.logger.Error("session load failed", map[string]interface{}{
			"sessionId": raw,
			"error":     err.Error(),
		})
		return nil, errors.NewSessionStoreError(err)
	}
	if len(values) == 0 {
		return newSession(uuid.NewString(), nil, false), nil
	}
	return newSession(raw, values, true), nil
}
