// internal/guards/guards.go
package guards

import (
	"context"

	"royalty-portal/internal/common/backend"
	"royalty-portal/internal/common/logger"
	"royalty-portal/internal/common/metrics"
	"royalty-portal/internal/session"

	"github.com/gofiber/fiber/v2"
)

const (
	RedirectLogin     = "/"
	RedirectSubscribe = "/subscribe"

	subscriptionLocalsKey = "portal.subscription"
)

// SubscriptionSource is the subset of the backend client the guards need.
type SubscriptionSource interface {
	GetSubscription(ctx context.Context, token, realmID string) (*backend.Subscription, error)
}

type Options struct {
	Sessions      *session.Manager
	Subscriptions SubscriptionSource
	Logger        logger.Logger
}

type Guards struct {
	sessions      *session.Manager
	subscriptions SubscriptionSource
	logger        logger.Logger
}

func New(opts Options) *Guards {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	return &Guards{
		sessions:      opts.Sessions,
		subscriptions: opts.Subscriptions,
		logger:        opts.Logger.WithFields(map[string]interface{}{"component": "guards"}),
	}
}

// PrivateRoute passes when access_token and user_id are both present. It
// trusts local presence and makes no network call.
func (g *Guards) PrivateRoute() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !session.FromCtx(c).Authenticated() {
			metrics.GuardDecisions.WithLabelValues("private", "redirect_login").Inc()
			return c.Redirect(RedirectLogin, fiber.StatusFound)
		}
		metrics.GuardDecisions.WithLabelValues("private", "allow").Inc()
		return c.Next()
	}
}

// SubscriptionProtectedRoute additionally requires realm_id and a fresh
// active or trialing subscription. Fetch failures deny access.
func (g *Guards) SubscriptionProtectedRoute() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := session.FromCtx(c)
		if !s.Authenticated() || s.RealmID() == "" {
			metrics.GuardDecisions.WithLabelValues("subscription", "redirect_login").Inc()
			return c.Redirect(RedirectLogin, fiber.StatusFound)
		}

		sub, active := g.Check(c.UserContext(), s)
		if !active {
			metrics.GuardDecisions.WithLabelValues("subscription", "redirect_subscribe").Inc()
			return c.Redirect(RedirectSubscribe, fiber.StatusFound)
		}

		metrics.GuardDecisions.WithLabelValues("subscription", "allow").Inc()
		c.Locals(subscriptionLocalsKey, sub)
		return c.Next()
	}
}

// Check fetches the subscription and records the outcome in has_subscription.
// Any failure counts as no subscription.
func (g *Guards) Check(ctx context.Context, s *session.Session) (*backend.Subscription, bool) {
	sub, err := g.subscriptions.GetSubscription(ctx, s.AccessToken(), s.RealmID())
	if err != nil {
		g.logger.Warn("subscription check failed, denying", map[string]interface{}{
			"realmId": s.RealmID(),
			"error":   err.Error(),
		})
		sub = nil
	}

	active := sub.IsActive()
	if werr := g.sessions.SetHasSubscription(ctx, s, active); werr != nil {
		g.logger.Error("failed to record subscription flag", map[string]interface{}{
			"realmId": s.RealmID(),
			"error":   werr.Error(),
		})
	}
	return sub, active
}

// SubscriptionFromCtx returns the subscription verified for this request, if any.
func SubscriptionFromCtx(c *fiber.Ctx) *backend.Subscription {
	sub, _ := c.Locals(subscriptionLocalsKey).(*backend.Subscription)
	return sub
}
