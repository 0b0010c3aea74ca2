// internal/licenses/wizard.go
package licenses

import (
	"fmt"
	"sort"
	"strings"

	"royalty-portal/internal/common/backend"
	"royalty-portal/internal/common/errors"
)

// Wizard holds the loaded license list and the Selection Set. The Selection
// Set only ever contains franchise numbers from Licenses.
type Wizard struct {
	RealmID     string            `json:"realm_id"`
	Mode        Mode              `json:"mode"`
	CompanyName string            `json:"company_name"`
	Licenses    []backend.License `json:"licenses"`
	Selected    map[string]bool   `json:"selected"`
	Query       Query             `json:"query"`
}

func NewWizard(realmID string, mode Mode, list *backend.LicenseList, pageSize int) *Wizard {
	if !validPageSize(pageSize) {
		pageSize = 25
	}
	w := &Wizard{
		RealmID:  realmID,
		Mode:     mode,
		Selected: make(map[string]bool),
		Query: Query{
			Status:  StatusAll,
			SortDir: SortAsc,
			Page:    1,
			Limit:   pageSize,
		},
	}
	if list == nil {
		return w
	}

	w.CompanyName = list.CompanyName
	w.Licenses = append([]backend.License(nil), list.Licenses...)
	for _, lic := range w.Licenses {
		if mode == ModeFirstRun || lic.Active {
			w.Selected[lic.FranchiseNumber] = true
		}
	}
	return w
}

func (w *Wizard) has(franchiseNumber string) bool {
	for _, lic := range w.Licenses {
		if lic.FranchiseNumber == franchiseNumber {
			return true
		}
	}
	return false
}

func (w *Wizard) IsSelected(franchiseNumber string) bool {
	return w.Selected[franchiseNumber]
}

func (w *Wizard) Toggle(franchiseNumber string) error {
	if !w.has(franchiseNumber) {
		return errors.NewUnknownFranchiseError(franchiseNumber)
	}
	if w.Selected[franchiseNumber] {
		delete(w.Selected, franchiseNumber)
	} else {
		w.Selected[franchiseNumber] = true
	}
	return nil
}

// SelectAll selects every loaded franchise, ignoring the current filter.
func (w *Wizard) SelectAll() {
	w.Selected = make(map[string]bool, len(w.Licenses))
	for _, lic := range w.Licenses {
		w.Selected[lic.FranchiseNumber] = true
	}
}

func (w *Wizard) DeselectAll() {
	w.Selected = make(map[string]bool)
}

func (w *Wizard) SetSearch(q string) {
	w.Query.Search = q
	w.Query.Page = 1
}

func (w *Wizard) SetStatus(status StatusFilter) error {
	switch status {
	case StatusAll, StatusSelected, StatusUnselected:
	default:
		return errors.NewValidationError(fmt.Sprintf("unknown status filter %q", status))
	}
	w.Query.Status = status
	w.Query.Page = 1
	return nil
}

func (w *Wizard) SetLimit(limit int) error {
	if !validPageSize(limit) {
		return errors.NewValidationError(fmt.Sprintf("page size must be one of %v", PageSizes))
	}
	w.Query.Limit = limit
	w.Query.Page = 1
	return nil
}

// SetSort flips direction when field is already active and otherwise
// switches to field ascending.
func (w *Wizard) SetSort(field SortField) error {
	switch field {
	case SortFranchiseNumber, SortName, SortCity:
	default:
		return errors.NewValidationError(fmt.Sprintf("unknown sort field %q", field))
	}
	if w.Query.SortField == field {
		if w.Query.SortDir == SortAsc {
			w.Query.SortDir = SortDesc
		} else {
			w.Query.SortDir = SortAsc
		}
		return nil
	}
	w.Query.SortField = field
	w.Query.SortDir = SortAsc
	return nil
}

func (w *Wizard) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	w.Query.Page = page
}

// Filtered applies search, status and sort. Ties keep input order.
func (w *Wizard) Filtered() []backend.License {
	needle := strings.ToLower(strings.TrimSpace(w.Query.Search))
	out := make([]backend.License, 0, len(w.Licenses))
	for _, lic := range w.Licenses {
		if needle != "" && !matches(lic, needle) {
			continue
		}
		switch w.Query.Status {
		case StatusSelected:
			if !w.Selected[lic.FranchiseNumber] {
				continue
			}
		case StatusUnselected:
			if w.Selected[lic.FranchiseNumber] {
				continue
			}
		}
		out = append(out, lic)
	}

	if w.Query.SortField != SortNone {
		field := w.Query.SortField
		desc := w.Query.SortDir == SortDesc
		sort.SliceStable(out, func(i, j int) bool {
			a, b := sortKey(out[i], field), sortKey(out[j], field)
			if desc {
				return a > b
			}
			return a < b
		})
	}
	return out
}

func matches(lic backend.License, needle string) bool {
	return strings.Contains(strings.ToLower(lic.FranchiseNumber), needle) ||
		strings.Contains(strings.ToLower(lic.Name), needle) ||
		strings.Contains(strings.ToLower(lic.City), needle)
}

func sortKey(lic backend.License, field SortField) string {
	switch field {
	case SortName:
		return strings.ToLower(lic.Name)
	case SortCity:
		return strings.ToLower(lic.City)
	default:
		return strings.ToLower(lic.FranchiseNumber)
	}
}

// View renders the current page. An out-of-range page is clamped to the last one.
func (w *Wizard) View() View {
	filtered := w.Filtered()
	limit := w.Query.Limit
	if limit <= 0 {
		limit = 25
	}
	totalPages := (len(filtered) + limit - 1) / limit

	page := w.Query.Page
	if page > totalPages && totalPages > 0 {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * limit
	end := start + limit
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	items := make([]Row, 0, end-start)
	for _, lic := range filtered[start:end] {
		items = append(items, Row{
			FranchiseNumber: lic.FranchiseNumber,
			Name:            lic.Name,
			City:            lic.City,
			State:           lic.State,
			Active:          lic.Active,
			Selected:        w.Selected[lic.FranchiseNumber],
		})
	}

	q := w.Query
	q.Page = page
	q.Limit = limit
	return View{
		RealmID:       w.RealmID,
		Mode:          w.Mode,
		CompanyName:   w.CompanyName,
		Query:         q,
		Items:         items,
		TotalLicenses: len(w.Licenses),
		TotalFiltered: len(filtered),
		TotalPages:    totalPages,
		SelectedCount: len(w.SelectedNumbers()),
	}
}

// SelectedNumbers returns the Selection Set in input order.
func (w *Wizard) SelectedNumbers() []string {
	out := make([]string, 0, len(w.Selected))
	for _, lic := range w.Licenses {
		if w.Selected[lic.FranchiseNumber] {
			out = append(out, lic.FranchiseNumber)
		}
	}
	return out
}

// Apply runs a QueryUpdate in a fixed order: search, status, limit, sort, page.
func (w *Wizard) Apply(u QueryUpdate) error {
	if u.Search != nil {
		w.SetSearch(*u.Search)
	}
	if u.Status != nil {
		if err := w.SetStatus(*u.Status); err != nil {
			return err
		}
	}
	if u.Limit != nil {
		if err := w.SetLimit(*u.Limit); err != nil {
			return err
		}
	}
	if u.Sort != nil {
		if err := w.SetSort(*u.Sort); err != nil {
			return err
		}
	}
	if u.Page != nil {
		w.SetPage(*u.Page)
	}
	return nil
}
