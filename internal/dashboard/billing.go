// internal/dashboard/billing.go
package dashboard

import (
	"context"
	"time"

	"royalty-portal/internal/common/backend"
	"royalty-portal/internal/common/errors"
	"royalty-portal/internal/session"
)

const (
	PathDashboard = "/dashboard"
	PathSubscribe = "/subscribe"
)

// Billing returns fresh subscription details. The active license count is the
// quantity a new checkout would bill.
func (s *Service) Billing(ctx context.Context, sess *session.Session) (*BillingView, error) {
	sub, err := s.backend.GetSubscription(ctx, sess.AccessToken(), sess.RealmID())
	if err != nil {
		return nil, err
	}
	view := &BillingView{
		Subscription: sub,
		Active:       sub.IsActive(),
		Email:        sess.UserEmail(),
	}
	if list, err := s.licenses(ctx, sess); err == nil {
		view.ActiveCount = len(list.ActiveNumbers())
	} else {
		s.logger.Warn("license count unavailable for billing", map[string]interface{}{"error": err.Error()})
	}
	return view, nil
}

// Checkout starts a Stripe checkout billed per active franchise.
func (s *Service) Checkout(ctx context.Context, sess *session.Session) (*RedirectView, error) {
	quantity := 1
	if list, err := s.licenses(ctx, sess); err == nil && len(list.ActiveNumbers()) > 0 {
		quantity = len(list.ActiveNumbers())
	}

	redirect, err := s.backend.CreateCheckoutSession(ctx, sess.AccessToken(), backend.CheckoutRequest{
		RealmID:  sess.RealmID(),
		UserID:   sess.UserID(),
		Email:    sess.UserEmail(),
		Quantity: quantity,
	})
	if err != nil {
		return nil, err
	}
	return redirectView(redirect)
}

// Portal opens the Stripe customer portal.
func (s *Service) Portal(ctx context.Context, sess *session.Session) (*RedirectView, error) {
	redirect, err := s.backend.CreateCustomerPortal(ctx, sess.AccessToken(), backend.PortalRequest{RealmID: sess.RealmID()})
	if err != nil {
		return nil, err
	}
	return redirectView(redirect)
}

func redirectView(r *backend.RedirectURL) (*RedirectView, error) {
	if r == nil || r.Target() == "" {
		return nil, errors.NewBackendDecodeError("stripe", errMissingURL)
	}
	return &RedirectView{URL: r.Target()}, nil
}

// Success checks the subscription after checkout. When it is not active yet
// exactly one delayed re-check is made.
func (s *Service) Success(ctx context.Context, sess *session.Session) (*SuccessView, error) {
	sub, active := s.subscriptions.Check(ctx, sess)
	view := &SuccessView{Active: active, Subscription: sub}

	if !active {
		timer := time.NewTimer(s.recheckDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
		view.Subscription, view.Active = s.subscriptions.Check(ctx, sess)
		view.Rechecked = true
	}

	view.Next = PathSubscribe
	if view.Active {
		view.Next = PathDashboard
	}
	return view, nil
}
