// internal/dashboard/reports.go
package dashboard

import (
	"context"

	"royalty-portal/internal/common/backend"
	"royalty-portal/internal/session"

	"golang.org/x/sync/errgroup"
)

// Reports loads the license mappings and both report lists independently.
func (s *Service) Reports(ctx context.Context, sess *session.Session) (*ReportsView, error) {
	out := &ReportsView{
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
		out.Licenses = toRows(list)
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
	return out, nil
}

// Generate creates one report and drops the cached list for its type.
func (s *Service) Generate(ctx context.Context, sess *session.Session, kind backend.ReportType, req GenerateRequest) (*backend.Report, error) {
	report, err := s.backend.GenerateReport(ctx, sess.AccessToken(), kind, backend.GenerateReportRequest{
		RealmID:         sess.RealmID(),
		FranchiseNumber: req.FranchiseNumber,
		Month:           req.Month,
		Year:            req.Year,
	})
	if err != nil {
		return nil, err
	}
	s.invalidateReports(ctx, sess, kind)
	return report, nil
}

// GenerateAll creates reports of one type for every active franchise.
func (s *Service) GenerateAll(ctx context.Context, sess *session.Session, kind backend.ReportType, req GenerateAllRequest) ([]backend.Report, error) {
	reports, err := s.backend.GenerateAllReports(ctx, sess.AccessToken(), kind, sess.RealmID(), backend.GenerateAllRequest{
		Month: req.Month,
		Year:  req.Year,
	})
	if err != nil {
		return nil, err
	}
	s.invalidateReports(ctx, sess, kind)
	return nonNil(reports), nil
}

func (s *Service) invalidateReports(ctx context.Context, sess *session.Session, kind backend.ReportType) {
	if err := s.cache.Invalidate(ctx, sess.RealmID(), reportResource(kind)); err != nil {
		s.logger.Warn("report cache invalidation failed", map[string]interface{}{
			"kind":  kind,
			"error": err.Error(),
		})
	}
}
