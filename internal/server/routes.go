// internal/server/routes.go
package server

import (
	"royalty-portal/internal/dashboard"
	"royalty-portal/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LandingView is returned on "/", where guarded routes send signed-out users.
type LandingView struct {
	Authenticated       bool   `json:"authenticated"`
	RealmID             string `json:"realm_id,omitempty"`
	OnboardingCompleted bool   `json:"onboarding_completed"`
	Next                string `json:"next,omitempty"`
}

func (s *Server) routes() {
	s.app.Get("/health", s.health)
	s.app.Get("/ready", s.readyHandler)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app := s.app.Group("", s.sessions.Middleware())
	app.Get("/", s.landing)
	s.oauth.Register(app)

	private := app.Group("", s.guards.PrivateRoute())
	s.onboarding.Register(private.Group("/onboarding"))
	s.wizard.Register(private.Group("/api/wizard"))
	private.Get("/subscribe", s.dashboard.Billing)
	private.Post("/api/billing/checkout", s.dashboard.Checkout)
	private.Get("/success", s.dashboard.Success)

	subscribed := app.Group("", s.guards.SubscriptionProtectedRoute())
	subscribed.Get(dashboard.PathDashboard, s.dashboard.Overview)
	s.dashboard.RegisterTabs(subscribed.Group("/api/dashboard"))
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy", "service": s.cfg.App.Name})
}

func (s *Server) readyHandler(c *fiber.Ctx) error {
	if failed := s.ready(c.UserContext()); len(failed) > 0 {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "failed": failed})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

func (s *Server) landing(c *fiber.Ctx) error {
	sess := session.FromCtx(c)
	view := LandingView{
		Authenticated: sess.Authenticated(),
		RealmID:       sess.RealmID(),
	}
	if view.Authenticated {
		view.OnboardingCompleted = sess.OnboardingCompleted(sess.RealmID())
		view.Next = "/onboarding"
		if view.OnboardingCompleted {
			view.Next = dashboard.PathDashboard
		}
	}
	return c.JSON(view)
}
