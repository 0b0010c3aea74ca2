// internal/onboarding/service.go
package onboarding

import (
	"context"

	"royalty-portal/internal/common/backend"
	"royalty-portal/internal/common/errors"
	"royalty-portal/internal/common/logger"
	"royalty-portal/internal/common/metrics"
	"royalty-portal/internal/licenses"
	"royalty-portal/internal/session"
)

const (
	PathLogin      = "/"
	PathDashboard  = "/dashboard"
	PathSubscribe  = "/subscribe"
	PathOnboarding = "/onboarding"
)

// CompanySource looks up and populates the QuickBooks company record.
type CompanySource interface {
	GetCompanyInfo(ctx context.Context, token, realmID string) (*backend.CompanyInfo, error)
	FetchCompanyInfo(ctx context.Context, token, realmID string) (*backend.CompanyInfo, error)
}

// SubscriptionChecker performs a fresh subscription check and records the flag.
type SubscriptionChecker interface {
	Check(ctx context.Context, s *session.Session) (*backend.Subscription, bool)
}

type ServiceOptions struct {
	Companies     CompanySource
	Subscriptions SubscriptionChecker
	Sessions      *session.Manager
	Logger        logger.Logger
}

// Service drives the onboarding state machine. It only moves forward.
type Service struct {
	companies     CompanySource
	subscriptions SubscriptionChecker
	sessions      *session.Manager
	logger        logger.Logger
}

func NewService(opts ServiceOptions) *Service {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	return &Service{
		companies:     opts.Companies,
		subscriptions: opts.Subscriptions,
		sessions:      opts.Sessions,
		logger:        opts.Logger.WithFields(map[string]interface{}{"component": "onboarding"}),
	}
}

// Enter resolves the state for a visit to the onboarding page.
func (s *Service) Enter(ctx context.Context, sess *session.Session, manage bool) (State, error) {
	if sess.RealmID() == "" {
		return s.transition(ctx, sess, nil, Redirect{To: PathLogin})
	}
	if !manage && sess.OnboardingStep(sess.RealmID()) == NameComplete {
		return Complete{}, nil
	}
	return s.Connect(ctx, sess, Connecting{Manage: manage})
}

// Retry is the user-confirmed, synchronous retry of a failed lookup.
func (s *Service) Retry(ctx context.Context, sess *session.Session, manage bool) (State, error) {
	if sess.RealmID() == "" {
		return s.transition(ctx, sess, nil, Redirect{To: PathLogin})
	}
	if step := sess.OnboardingStep(sess.RealmID()); step != "" && step != NameConnecting && step != NameSelectingFranchises {
		return nil, errors.NewOnboardingStepError("retry is only available while connecting")
	}
	return s.Connect(ctx, sess, Connecting{Manage: manage})
}

// Connect runs the 1 -> 2 transition. A 404 triggers one populate call; any
// other failure keeps the flow in Connecting with a retry prompt.
func (s *Service) Connect(ctx context.Context, sess *session.Session, from Connecting) (State, error) {
	token, realmID := sess.AccessToken(), sess.RealmID()

	info, err := s.companies.GetCompanyInfo(ctx, token, realmID)
	if errors.IsNotFound(err) {
		s.logger.Info("company info missing, fetching from QuickBooks", map[string]interface{}{"realmId": realmID})
		info, err = s.companies.FetchCompanyInfo(ctx, token, realmID)
	}
	if err != nil {
		s.logger.Warn("company info lookup failed", map[string]interface{}{
			"realmId": realmID,
			"error":   err.Error(),
		})
		return s.transition(ctx, sess, from, Connecting{
			Manage:      from.Manage,
			RetryPrompt: retryPrompt(err),
		})
	}

	if bool(info.OnboardingCompleted) && !from.Manage {
		if err := s.sessions.MarkOnboardingCompleted(ctx, sess, realmID); err != nil {
			return nil, err
		}
		return s.transition(ctx, sess, from, Redirect{To: PathDashboard})
	}

	return s.transition(ctx, sess, from, SelectingFranchises{
		Manage:      from.Manage,
		CompanyName: info.CompanyName,
	})
}

// CanComplete reports whether saving w may advance onboarding. Manage mode is
// always allowed; a first-run save must come from the selection step of the
// same realm.
func (s *Service) CanComplete(sess *session.Session, w *licenses.Wizard) error {
	if w.Mode == licenses.ModeManage {
		return nil
	}
	if w.RealmID != sess.RealmID() || sess.OnboardingStep(w.RealmID) != NameSelectingFranchises {
		return errors.NewOnboardingStepError("franchise selection was not started from onboarding")
	}
	return nil
}

// AfterSelection is the wizard completion callback (2 -> 3). Manage mode
// skips step 3 and returns to the dashboard.
func (s *Service) AfterSelection(ctx context.Context, sess *session.Session, w *licenses.Wizard, response map[string]interface{}) (string, error) {
	from := SelectingFranchises{Manage: w.Mode == licenses.ModeManage}

	if from.Manage {
		if _, err := s.transition(ctx, sess, from, Redirect{To: PathDashboard}); err != nil {
			return "", err
		}
		return PathDashboard, nil
	}

	if err := s.CanComplete(sess, w); err != nil {
		return "", err
	}
	if err := s.sessions.MarkOnboardingCompleted(ctx, sess, w.RealmID); err != nil {
		return "", err
	}
	if _, err := s.transition(ctx, sess, from, Complete{}); err != nil {
		return "", err
	}
	return PathOnboarding, nil
}

// Finish is the step 3 action: a fresh subscription check decides between
// the dashboard and checkout.
func (s *Service) Finish(ctx context.Context, sess *session.Session) (Redirect, error) {
	if sess.OnboardingStep(sess.RealmID()) != NameComplete {
		return Redirect{}, errors.NewOnboardingStepError("onboarding is not complete")
	}

	_, active := s.subscriptions.Check(ctx, sess)
	to := PathSubscribe
	if active {
		to = PathDashboard
	}
	if _, err := s.transition(ctx, sess, Complete{}, Redirect{To: to}); err != nil {
		return Redirect{}, err
	}
	return Redirect{To: to}, nil
}

// transition records the new state name for the session's realm and counts
// it. A Redirect ends the flow and clears the recorded step.
func (s *Service) transition(ctx context.Context, sess *session.Session, from, to State) (State, error) {
	fromName := "entry"
	if from != nil {
		fromName = from.Name()
	}
	metrics.OnboardingTransitions.WithLabelValues(fromName, to.Name()).Inc()

	realmID := sess.RealmID()
	if realmID == "" {
		return to, nil
	}
	if _, ok := to.(Redirect); ok {
		if err := s.sessions.ClearOnboardingStep(ctx, sess, realmID); err != nil {
			return nil, err
		}
		return to, nil
	}
	if err := s.sessions.SetOnboardingStep(ctx, sess, realmID, to.Name()); err != nil {
		return nil, err
	}
	return to, nil
}

func retryPrompt(err error) string {
	msg := errors.Normalize(err).UserMessage()
	return "Unable to reach QuickBooks: " + msg + " Retry now?"
}
