package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StringBool decodes the backend's "true"/"false" strings into a bool and
// encodes back to the same wire format. JSON booleans are accepted too.
type StringBool bool

func (b StringBool) MarshalJSON() ([]byte, error) {
	if b {
		return []byte(`"true"`), nil
	}
	return []byte(`"false"`), nil
}

func (b *StringBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = false
		return nil
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*b = StringBool(v)
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			*b = true
		case "false", "":
			*b = false
		default:
			return fmt.Errorf("invalid boolean string %q", v)
		}
	default:
		return fmt.Errorf("invalid boolean value %s", string(data))
	}
	return nil
}

// License is a QuickBooks department mapped to a billable franchise.
type License struct {
	FranchiseNumber string
	Name            string
	City            string
	State           string
	Active          bool
	DepartmentName  string
	DepartmentID    string
}

type licenseWire struct {
	FranchiseNumber string `json:"franchise_number"`
	Name            string `json:"name"`
	City            string `json:"city"`
	State           string `json:"state"`
	QuickBooks      struct {
		IsActive       StringBool `json:"is_active"`
		DepartmentName string     `json:"department_name,omitempty"`
		DepartmentID   string     `json:"department_id,omitempty"`
	} `json:"quickbooks"`
}

func (l License) MarshalJSON() ([]byte, error) {
	var w licenseWire
	w.FranchiseNumber = l.FranchiseNumber
	w.Name = l.Name
	w.City = l.City
	w.State = l.State
	w.QuickBooks.IsActive = StringBool(l.Active)
	w.QuickBooks.DepartmentName = l.DepartmentName
	w.QuickBooks.DepartmentID = l.DepartmentID
	return json.Marshal(w)
}

func (l *License) UnmarshalJSON(data []byte) error {
	var w licenseWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*l = License{
		FranchiseNumber: w.FranchiseNumber,
		Name:            w.Name,
		City:            w.City,
		State:           w.State,
		Active:          bool(w.QuickBooks.IsActive),
		DepartmentName:  w.QuickBooks.DepartmentName,
		DepartmentID:    w.QuickBooks.DepartmentID,
	}
	return nil
}

// LicenseList is the response of GET /licenses/company/{realmId}.
type LicenseList struct {
	Licenses    []License `json:"licenses"`
	CompanyName string    `json:"company_name"`
}

// ActiveNumbers returns the franchise numbers currently active, in list order.
func (l LicenseList) ActiveNumbers() []string {
	out := make([]string, 0, len(l.Licenses))
	for _, lic := range l.Licenses {
		if lic.Active {
			out = append(out, lic.FranchiseNumber)
		}
	}
	return out
}

// Subscription statuses the portal cares about.
const (
	SubscriptionActive         = "active"
	SubscriptionTrialing       = "trialing"
	SubscriptionCanceled       = "canceled"
	SubscriptionNoSubscription = "no_subscription"
)

type Subscription struct {
	Status           string `json:"status"`
	Quantity         int    `json:"quantity"`
	EndDate          string `json:"end_date,omitempty"`
	StripeCustomerID string `json:"stripe_customer_id,omitempty"`
	PlanName         string `json:"plan_name,omitempty"`
}

// IsActive reports whether the subscription authorizes dashboard access.
func (s *Subscription) IsActive() bool {
	if s == nil {
		return false
	}
	return s.Status == SubscriptionActive || s.Status == SubscriptionTrialing
}

type CompanyInfo struct {
	RealmID             string     `json:"realm_id,omitempty"`
	CompanyName         string     `json:"company_name"`
	OnboardingCompleted StringBool `json:"onboarding_completed"`
}

type QBOUser struct {
	UserID              string     `json:"user_id"`
	RealmID             string     `json:"realm_id,omitempty"`
	Email               string     `json:"email,omitempty"`
	CompanyName         string     `json:"company_name,omitempty"`
	OnboardingCompleted StringBool `json:"onboarding_completed"`
}

type OAuthExchangeRequest struct {
	Code    string `json:"code"`
	RealmID string `json:"realm_id"`
}

type OAuthExchangeResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	RealmID     string `json:"realm_id,omitempty"`
	Email       string `json:"email,omitempty"`
}

// ReportType selects between the two generated report families.
type ReportType string

const (
	ReportRVCR           ReportType = "rvcr"
	ReportPaymentSummary ReportType = "payment-summary"
)

// ParseReportType accepts the URL form of a report type.
func ParseReportType(s string) (ReportType, bool) {
	switch ReportType(s) {
	case ReportRVCR, ReportPaymentSummary:
		return ReportType(s), true
	}
	return "", false
}

type Report struct {
	ID               string `json:"id"`
	FranchiseNumber  string `json:"franchise_number"`
	PeriodMonth      int    `json:"period_month"`
	PeriodYear       int    `json:"period_year"`
	GeneratedAt      string `json:"generated_at"`
	ExcelDownloadURL string `json:"excel_download_url,omitempty"`
	PDFDownloadURL   string `json:"pdf_download_url,omitempty"`
}

// ReportList decodes either a bare array or an object with a "reports" key.
type ReportList []Report

func (r *ReportList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []Report
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*r = items
		return nil
	}
	var wrapped struct {
		Reports []Report `json:"reports"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*r = wrapped.Reports
	return nil
}

type GenerateReportRequest struct {
	RealmID         string `json:"realm_id"`
	FranchiseNumber string `json:"franchise_number"`
	Month           int    `json:"month"`
	Year            int    `json:"year"`
}

type GenerateAllRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

type CheckoutRequest struct {
	RealmID  string `json:"realm_id"`
	UserID   string `json:"user_id"`
	Email    string `json:"email,omitempty"`
	Quantity int    `json:"quantity"`
}

type PortalRequest struct {
	RealmID string `json:"realm_id"`
}

// RedirectURL is the response of both Stripe endpoints.
type RedirectURL struct {
	URL         string `json:"url"`
	CheckoutURL string `json:"checkout_url,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
}

// Target returns whichever URL field the backend populated.
func (r RedirectURL) Target() string {
	if r.URL != "" {
		return r.URL
	}
	return r.CheckoutURL
}
