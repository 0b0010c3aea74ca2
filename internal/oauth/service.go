// internal/oauth/service.go
package oauth

import (
	"context"
	stderrors "errors"
	"strings"

	"royalty-portal/internal/common/backend"
	"royalty-portal/internal/common/errors"
	"royalty-portal/internal/common/logger"
	"royalty-portal/internal/common/metrics"
	"royalty-portal/internal/session"
)

const (
	PathDashboard  = "/dashboard"
	PathOnboarding = "/onboarding"
)

var (
	errCodeReused     = stderrors.New("authorization code was already exchanged")
	errPreviousFailed = stderrors.New("previous exchange of this authorization code failed")
)

// Exchanger is the part of the backend client the callback uses.
type Exchanger interface {
	StoreOAuth(ctx context.Context, req backend.OAuthExchangeRequest, idempotencyKey string) (*backend.OAuthExchangeResponse, error)
	GetQBOUser(ctx context.Context, token, realmID string) (*backend.QBOUser, error)
}

type ServiceOptions struct {
	Backend  Exchanger
	Claims   *ClaimStore
	Sessions *session.Manager
	Logger   logger.Logger
}

type Service struct {
	backend  Exchanger
	claims   *ClaimStore
	sessions *session.Manager
	logger   logger.Logger
}

func NewService(opts ServiceOptions) *Service {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoOpLogger()
	}
	return &Service{
		backend:  opts.Backend,
		claims:   opts.Claims,
		sessions: opts.Sessions,
		logger:   opts.Logger.WithFields(map[string]interface{}{"component": "oauth"}),
	}
}

// Callback exchanges code exactly once and returns the redirect target.
// Duplicate invocations follow the recorded outcome and never re-post.
func (s *Service) Callback(ctx context.Context, sess *session.Session, code, realmID string) (string, error) {
	if missing := missingParams(code, realmID); missing != "" {
		metrics.OAuthExchanges.WithLabelValues("missing_params").Inc()
		return "", errors.NewOAuthParamsMissingError(missing)
	}

	digest := Digest(code)
	log := s.logger.WithFields(map[string]interface{}{"realmId": realmID, "claim": digest[:12]})

	acquired, outcome, err := s.claims.Claim(ctx, digest)
	if err != nil {
		// The Idempotency-Key still stops the backend from consuming the code twice.
		log.Warn("claim store unavailable, relying on backend idempotency", map[string]interface{}{"error": err.Error()})
		acquired = true
	}
	if !acquired {
		return s.followOutcome(sess, realmID, outcome, log)
	}

	target, err := s.exchange(ctx, sess, code, realmID, digest)
	if err != nil {
		metrics.OAuthExchanges.WithLabelValues("failed").Inc()
		log.Warn("oauth exchange failed", map[string]interface{}{"error": err.Error()})
		if ferr := s.claims.Fail(ctx, digest); ferr != nil {
			log.Error("failed to record failed claim", map[string]interface{}{"error": ferr.Error()})
		}
		return "", errors.NewOAuthFailedError(err)
	}

	if serr := s.claims.Succeed(ctx, digest, target); serr != nil {
		log.Error("failed to record claim outcome", map[string]interface{}{"error": serr.Error()})
	}
	metrics.OAuthExchanges.WithLabelValues("exchanged").Inc()
	log.Info("quickbooks connected", map[string]interface{}{"target": target})
	return target, nil
}

func (s *Service) exchange(ctx context.Context, sess *session.Session, code, realmID, digest string) (string, error) {
	resp, err := s.backend.StoreOAuth(ctx, backend.OAuthExchangeRequest{Code: code, RealmID: realmID}, digest)
	if err != nil {
		return "", err
	}
	if resp.RealmID != "" {
		realmID = resp.RealmID
	}

	if err := s.sessions.SetAuth(ctx, sess, session.Auth{
		AccessToken: resp.AccessToken,
		RealmID:     realmID,
		UserID:      resp.UserID,
		Email:       resp.Email,
	}); err != nil {
		return "", err
	}

	user, err := s.backend.GetQBOUser(ctx, resp.AccessToken, realmID)
	if err != nil {
		return "", err
	}
	if !bool(user.OnboardingCompleted) {
		return PathOnboarding, nil
	}
	if err := s.sessions.MarkOnboardingCompleted(ctx, sess, realmID); err != nil {
		return "", err
	}
	return PathDashboard, nil
}

func (s *Service) followOutcome(sess *session.Session, realmID string, outcome Outcome, log logger.Logger) (string, error) {
	switch {
	case outcome.Pending:
		metrics.OAuthExchanges.WithLabelValues("duplicate_pending").Inc()
		return "", errors.NewOAuthInProgressError()
	case outcome.Failed:
		metrics.OAuthExchanges.WithLabelValues("duplicate_failed").Inc()
		return "", errors.NewOAuthFailedError(errPreviousFailed)
	}

	if sess.Authenticated() && sess.RealmID() == realmID {
		metrics.OAuthExchanges.WithLabelValues("duplicate_followed").Inc()
		log.Info("duplicate callback follows recorded outcome", map[string]interface{}{"target": outcome.Target})
		return outcome.Target, nil
	}
	metrics.OAuthExchanges.WithLabelValues("duplicate_rejected").Inc()
	return "", errors.NewOAuthFailedError(errCodeReused)
}

func missingParams(code, realmID string) string {
	var missing []string
	if strings.TrimSpace(code) == "" {
		missing = append(missing, "code")
	}
	if strings.TrimSpace(realmID) == "" {
		missing = append(missing, "realmId")
	}
	return strings.Join(missing, ", ")
}
