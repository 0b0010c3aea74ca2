// internal/dashboard/service.go
package dashboard

import (
	"context"
	"sync"
	"time"

	"royalty-portal/internal/cache"
	"royalty-portal/internal/common/backend"
	"royalty-portal/internal/common/errors"
	"royalty-portal/internal/common/logger"
	"royalty-portal/internal/session"

	"golang.org/x/sync/errgroup"
)

// Backend is the part of the backend client the dashboard uses.
type Backend interface {
	GetLicenses(ctx context.Context, token, realmID string) (*backend.LicenseList, error)
	SelectLicenses(ctx context.Context, token, realmID string, franchiseNumbers []string) (map[string]interface{}, error)
	SetLicenseActive(ctx context.Context, token, realmID, franchiseNumber string, active bool) error
	GetSubscription(ctx context.Context, token, realmID string) (*backend.Subscription, error)
	GetQBOUser(ctx context.Context, token, realmID string) (*backend.QBOUser, error)
	ListReports(ctx context.Context, token string, kind backend.ReportType, realmID string) ([]backend.Report, error)
	GenerateReport(ctx context.Context, token string, kind backend.ReportType, req backend.GenerateReportRequest) (*backend.Report, error)
	GenerateAllReports(ctx context.Context, token string, kind backend.ReportType, realmID string, req backend.GenerateAllRequest) ([]backend.Report, error)
	CreateCheckoutSession(ctx context.Context, token string, req backend.CheckoutRequest) (*backend.RedirectURL, error)
	CreateCustomerPortal(ctx context.Context, token string, req backend.PortalRequest) (*backend.RedirectURL, error)
}

// SubscriptionChecker performs a fresh subscription check and records the flag.
type SubscriptionChecker interface {
	Check(ctx context.Context, s *session.Session) (*backend.Subscription, bool)
}

type ServiceOptions struct {
	Backend       Backend
	Cache         *cache.Cache
	Subscriptions SubscriptionChecker
	RecheckDelay  time.Duration
	Logger        logger.Logger
}

type Service struct {
	backend       Backend
	cache         *cache.Cache
	subscriptions SubscriptionChecker
	recheckDelay  time.Duration
	logger        logger.Logger
}

func NewService(opts ServiceOptions) *Service {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	if opts.RecheckDelay <= 0 {
		opts.RecheckDelay = 3 * time.Second
	}
	return &Service{
		backend:       opts.Backend,
		cache:         opts.Cache,
		subscriptions: opts.Subscriptions,
		recheckDelay:  opts.RecheckDelay,
		logger:        opts.Logger.WithFields(map[string]interface{}{"component": "dashboard"}),
	}
}

func (s *Service) licenses(ctx context.Context, sess *session.Session) (*backend.LicenseList, error) {
	return cache.Get(ctx, s.cache, cache.ResourceLicenses, sess.RealmID(), func(ctx context.Context) (*backend.LicenseList, error) {
		return s.backend.GetLicenses(ctx, sess.AccessToken(), sess.RealmID())
	})
}

func (s *Service) user(ctx context.Context, sess *session.Session) (*backend.QBOUser, error) {
	return cache.Get(ctx, s.cache, cache.ResourceQBOUser, sess.RealmID(), func(ctx context.Context) (*backend.QBOUser, error) {
		return s.backend.GetQBOUser(ctx, sess.AccessToken(), sess.RealmID())
	})
}

func (s *Service) reports(ctx context.Context, sess *session.Session, kind backend.ReportType) ([]backend.Report, error) {
	return cache.Get(ctx, s.cache, reportResource(kind), sess.RealmID(), func(ctx context.Context) ([]backend.Report, error) {
		return s.backend.ListReports(ctx, sess.AccessToken(), kind, sess.RealmID())
	})
}

func reportResource(kind backend.ReportType) cache.Resource {
	if kind == backend.ReportPaymentSummary {
		return cache.ResourcePaymentSummaryReports
	}
	return cache.ResourceRVCRReports
}

// sectionErrors collects per-section failures from parallel fetches.
type sectionErrors struct {
	mu   sync.Mutex
	errs map[string]string
}

func (e *sectionErrors) add(section string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.errs == nil {
		e.errs = make(map[string]string)
	}
	e.errs[section] = errors.Normalize(err).UserMessage()
}

func (e *sectionErrors) result() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errs
}

// Overview joins the license list, a fresh subscription, the QuickBooks user
// and both report lists. A failing fetch only empties its own section.
func (s *Service) Overview(ctx context.Context, sess *session.Session) (*Overview, error) {
	out := &Overview{
		Licenses:              []LicenseRow{},
		RVCRReports:           []backend.Report{},
		PaymentSummaryReports: []backend.Report{},
	}
	var failures sectionErrors
	var g errgroup.Group

	g.Go(func() error {
		list, err := s.licenses(ctx, sess)
		if err != nil {
			failures.add("licenses", err)
			return nil
		}
		out.CompanyName = list.CompanyName
		out.Licenses = toRows(list)
		out.ActiveCount = len(list.ActiveNumbers())
		return nil
	})
	g.Go(func() error {
		sub, err := s.backend.GetSubscription(ctx, sess.AccessToken(), sess.RealmID())
		if err != nil {
			failures.add("subscription", err)
			return nil
		}
		out.Subscription = sub
		return nil
	})
	g.Go(func() error {
		user, err := s.user(ctx, sess)
		if err != nil {
			failures.add("user", err)
			return nil
		}
		out.User = user
		return nil
	})
	g.Go(func() error {
		reports, err := s.reports(ctx, sess, backend.ReportRVCR)
		if err != nil {
			failures.add("rvcr_reports", err)
			return nil
		}
		out.RVCRReports = nonNil(reports)
		return nil
	})
	g.Go(func() error {
		reports, err := s.reports(ctx, sess, backend.ReportPaymentSummary)
		if err != nil {
			failures.add("payment_summary_reports", err)
			return nil
		}
		out.PaymentSummaryReports = nonNil(reports)
		return nil
	})

	_ = g.Wait()
	out.Errors = failures.result()
	if len(out.Errors) > 0 {
		s.logger.Warn("overview loaded with failures", map[string]interface{}{
			"realmId": sess.RealmID(),
			"failed":  out.Errors,
		})
	}
	return out, nil
}

func nonNil(reports []backend.Report) []backend.Report {
	if reports == nil {
		return []backend.Report{}
	}
	return reports
}
