// internal/dashboard/franchises.go
package dashboard

import (
	"context"
	"fmt"

	"royalty-portal/internal/cache"
	"royalty-portal/internal/common/backend"
	"royalty-portal/internal/common/errors"
	"royalty-portal/internal/session"
)

func (s *Service) Franchises(ctx context.Context, sess *session.Session) (*FranchisesView, error) {
	list, err := s.licenses(ctx, sess)
	if err != nil {
		return nil, err
	}
	return franchisesView(list), nil
}

func franchisesView(list *backend.LicenseList) *FranchisesView {
	return &FranchisesView{
		CompanyName: list.CompanyName,
		Licenses:    toRows(list),
		Total:       len(list.Licenses),
		ActiveCount: len(list.ActiveNumbers()),
	}
}

// Toggle sets one franchise's active flag. On success the cached list is
// updated in place without a re-fetch. On failure nothing is changed or
// rolled back; the caller only gets the error.
func (s *Service) Toggle(ctx context.Context, sess *session.Session, franchiseNumber string, active bool) (*ToggleResult, error) {
	if err := s.backend.SetLicenseActive(ctx, sess.AccessToken(), sess.RealmID(), franchiseNumber, active); err != nil {
		s.logger.Warn("franchise toggle failed", map[string]interface{}{
			"realmId":         sess.RealmID(),
			"franchiseNumber": franchiseNumber,
			"active":          active,
			"error":           err.Error(),
		})
		return nil, err
	}

	updated, err := cache.Update(ctx, s.cache, cache.ResourceLicenses, sess.RealmID(), func(list *backend.LicenseList) *backend.LicenseList {
		for i := range list.Licenses {
			if list.Licenses[i].FranchiseNumber == franchiseNumber {
				list.Licenses[i].Active = active
			}
		}
		return list
	})
	if err != nil {
		s.logger.Warn("cached license list not updated", map[string]interface{}{"error": err.Error()})
	}

	return &ToggleResult{FranchiseNumber: franchiseNumber, Active: active, CacheUpdated: updated}, nil
}

// Bulk recomputes the full desired franchise-number array and submits it
// through select-licenses, then invalidates and re-fetches the list. An
// unconfirmed request makes no network call.
func (s *Service) Bulk(ctx context.Context, sess *session.Session, req BulkRequest) (*BulkResult, error) {
	if req.Action != BulkActivate && req.Action != BulkDeactivate {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown bulk action %q", req.Action))
	}
	if !req.Confirmed {
		return &BulkResult{Applied: false, ConfirmationRequired: true}, nil
	}

	list, err := s.licenses(ctx, sess)
	if err != nil {
		return nil, err
	}
	desired := desiredActive(list, req)

	if _, err := s.backend.SelectLicenses(ctx, sess.AccessToken(), sess.RealmID(), desired); err != nil {
		s.logger.Warn("bulk franchise update failed", map[string]interface{}{
			"realmId": sess.RealmID(),
			"action":  req.Action,
			"error":   err.Error(),
		})
		return nil, err
	}

	if err := s.cache.Invalidate(ctx, sess.RealmID(), cache.ResourceLicenses); err != nil {
		s.logger.Warn("license cache invalidation failed", map[string]interface{}{"error": err.Error()})
	}
	fresh, err := s.licenses(ctx, sess)
	if err != nil {
		return nil, err
	}

	s.logger.Info("bulk franchise update applied", map[string]interface{}{
		"realmId": sess.RealmID(),
		"action":  req.Action,
		"active":  len(desired),
	})
	return &BulkResult{Applied: true, Franchises: franchisesView(fresh)}, nil
}

// desiredActive returns, in list order, the franchise numbers that should be
// active after req.
func desiredActive(list *backend.LicenseList, req BulkRequest) []string {
	target := make(map[string]bool, len(req.FranchiseNumbers))
	for _, fn := range req.FranchiseNumbers {
		target[fn] = true
	}
	all := len(target) == 0

	out := make([]string, 0, len(list.Licenses))
	for _, l := range list.Licenses {
		affected := all || target[l.FranchiseNumber]
		active := l.Active
		if affected {
			active = req.Action == BulkActivate
		}
		if active {
			out = append(out, l.FranchiseNumber)
		}
	}
	return out
}
