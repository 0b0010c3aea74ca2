// internal/dashboard/models.go
package dashboard

import "royalty-portal/internal/common/backend"

// LicenseRow is a franchise as shown on the dashboard.
type LicenseRow struct {
	FranchiseNumber string `json:"franchise_number"`
	Name            string `json:"name"`
	City            string `json:"city"`
	State           string `json:"state"`
	Active          bool   `json:"active"`
	DepartmentName  string `json:"department_name,omitempty"`
}

func toRows(list *backend.LicenseList) []LicenseRow {
	if list == nil {
		return []LicenseRow{}
	}
	rows := make([]LicenseRow, 0, len(list.Licenses))
	for _, l := range list.Licenses {
		rows = append(rows, LicenseRow{
			FranchiseNumber: l.FranchiseNumber,
			Name:            l.Name,
			City:            l.City,
			State:           l.State,
			Active:          l.Active,
			DepartmentName:  l.DepartmentName,
		})
	}
	return rows
}

// Overview is the first dashboard tab. Sections that failed to load are
// empty and listed in Errors with a user message.
type Overview struct {
	CompanyName           string                `json:"company_name"`
	Licenses              []LicenseRow          `json:"licenses"`
	ActiveCount           int                   `json:"active_count"`
	Subscription          *backend.Subscription `json:"subscription"`
	User                  *backend.QBOUser      `json:"user"`
	RVCRReports           []backend.Report      `json:"rvcr_reports"`
	PaymentSummaryReports []backend.Report      `json:"payment_summary_reports"`
	Errors                map[string]string     `json:"errors,omitempty"`
}

type FranchisesView struct {
	CompanyName string       `json:"company_name"`
	Licenses    []LicenseRow `json:"licenses"`
	Total       int          `json:"total"`
	ActiveCount int          `json:"active_count"`
}

type ToggleRequest struct {
	Active bool `json:"active"`
}

type ToggleResult struct {
	FranchiseNumber string `json:"franchise_number"`
	Active          bool   `json:"active"`
	CacheUpdated    bool   `json:"cache_updated"`
}

type BulkAction string

const (
	BulkActivate   BulkAction = "activate"
	BulkDeactivate BulkAction = "deactivate"
)

// BulkRequest activates or deactivates FranchiseNumbers, or every franchise
// when the list is empty. Nothing happens unless Confirmed is true.
type BulkRequest struct {
	Action           BulkAction `json:"action"`
	FranchiseNumbers []string   `json:"franchise_numbers"`
	Confirmed        bool       `json:"confirmed"`
}

type BulkResult struct {
	Applied              bool            `json:"applied"`
	ConfirmationRequired bool            `json:"confirmation_required,omitempty"`
	Franchises           *FranchisesView `json:"franchises,omitempty"`
}

type ReportsView struct {
	Licenses              []LicenseRow      `json:"licenses"`
	RVCRReports           []backend.Report  `json:"rvcr_reports"`
	PaymentSummaryReports []backend.Report  `json:"payment_summary_reports"`
	Errors                map[string]string `json:"errors,omitempty"`
}

type GenerateRequest struct {
	FranchiseNumber string `json:"franchise_number"`
	Month           int    `json:"month"`
	Year            int    `json:"year"`
}

type GenerateAllRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

type BillingView struct {
	Subscription *backend.Subscription `json:"subscription"`
	Active       bool                  `json:"active"`
	ActiveCount  int                   `json:"active_count"`
	Email        string                `json:"email,omitempty"`
}

type RedirectView struct {
	URL string `json:"url"`
}

// SuccessView is the post-checkout page.
type SuccessView struct {
	Active       bool                  `json:"active"`
	Rechecked    bool                  `json:"rechecked"`
	Subscription *backend.Subscription `json:"subscription,omitempty"`
	Next         string                `json:"next"`
}
