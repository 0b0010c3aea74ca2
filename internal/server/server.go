// internal/server/server.go
package server

import (
	"context"
	"time"

	"royalty-portal/internal/cache"
	"royalty-portal/internal/common/backend"
	"royalty-portal/internal/common/config"
	"royalty-portal/internal/common/errors"
	"royalty-portal/internal/common/logger"
	"royalty-portal/internal/common/observability"
	"royalty-portal/internal/dashboard"
	"royalty-portal/internal/guards"
	"royalty-portal/internal/licenses"
	"royalty-portal/internal/oauth"
	"royalty-portal/internal/onboarding"
	"royalty-portal/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

// Check is a readiness probe for one dependency.
type Check func(ctx context.Context) error

type Options struct {
	Config        *config.Config
	Logger        logger.Logger
	Redis         redis.Cmdable
	Sessions      session.Store
	Backend       *backend.Client
	Observability *observability.Observability
	Readiness     map[string]Check
}

// Server is the portal's HTTP front: session handling, route guards and the
// onboarding, wizard, OAuth and dashboard handlers.
type Server struct {
	app       *fiber.App
	cfg       *config.Config
	logger    logger.Logger
	readiness map[string]Check

	sessions   *session.Manager
	guards     *guards.Guards
	onboarding *onboarding.Handler
	wizard     *licenses.Handler
	oauth      *oauth.Handler
	dashboard  *dashboard.Handler
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	cfg := opts.Config
	log := opts.Logger

	sessions := session.NewManager(opts.Sessions, session.ManagerOptions{
		CookieName:   cfg.Session.CookieName,
		CookieSecure: cfg.Session.CookieSecure,
		TTL:          config.GetDuration(cfg.Session.TTL),
		Logger:       log,
	})
	dataCache := cache.New(opts.Redis, cache.Options{
		Prefix: cfg.Cache.Prefix,
		TTL:    config.GetDuration(cfg.Cache.TTL),
		Logger: log,
	})
	g := guards.New(guards.Options{
		Sessions:      sessions,
		Subscriptions: opts.Backend,
		Logger:        log,
	})

	wizardSvc := licenses.NewService(licenses.ServiceOptions{
		Backend:  opts.Backend,
		Cache:    dataCache,
		States:   licenses.NewStateStore(opts.Redis, config.GetDuration(cfg.Wizard.StateTTL)),
		PageSize: cfg.Wizard.DefaultPageSize,
		Logger:   log,
	})
	onboardingSvc := onboarding.NewService(onboarding.ServiceOptions{
		Companies:     opts.Backend,
		Subscriptions: g,
		Sessions:      sessions,
		Logger:        log,
	})
	oauthSvc := oauth.NewService(oauth.ServiceOptions{
		Backend:  opts.Backend,
		Claims:   oauth.NewClaimStore(opts.Redis, config.GetDuration(cfg.OAuth.ClaimTTL)),
		Sessions: sessions,
		Logger:   log,
	})
	dashboardSvc := dashboard.NewService(dashboard.ServiceOptions{
		Backend:       opts.Backend,
		Cache:         dataCache,
		Subscriptions: g,
		RecheckDelay:  config.GetDuration(cfg.Billing.SuccessRecheckDelay),
		Logger:        log,
	})

	s := &Server{
		cfg:       cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "server"}),
		readiness: opts.Readiness,
		sessions:  sessions,
		guards:    g,
		onboarding: onboarding.NewHandler(onboarding.HandlerOptions{
			Service: onboardingSvc,
			Wizard:  wizardSvc,
			Logger:  log,
		}),
		wizard: licenses.NewHandler(licenses.HandlerOptions{
			Service:    wizardSvc,
			CanSave:    onboardingSvc.CanComplete,
			OnComplete: onboardingSvc.AfterSelection,
			Logger:     log,
		}),
		oauth:     oauth.NewHandler(oauth.HandlerOptions{Service: oauthSvc, Sessions: sessions}),
		dashboard: dashboard.NewHandler(dashboard.HandlerOptions{Service: dashboardSvc, Logger: log}),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		ReadTimeout:           config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout:          config.GetDuration(cfg.Server.WriteTimeout),
		DisableStartupMessage: true,
		ErrorHandler:          errors.NewErrorHandler(log).Handle,
	})
	s.app.Use(requestID())
	s.app.Use(accessLog(log, opts.Observability))
	// Panics become errors inside accessLog so they are logged and counted.
	s.app.Use(recover.New())
	s.routes()

	return s
}

// App exposes the fiber app for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving on the configured address.
func (s *Server) Listen() error {
	s.logger.Info("portal listening", map[string]interface{}{"address": s.cfg.Server.Address})
	return s.app.Listen(s.cfg.Server.Address)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) ready(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range s.readiness {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	return failed
}
