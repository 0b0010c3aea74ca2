package licenses

import (
	"fmt"
	"strings"
	"testing"

	"royalty-portal/internal/common/backend"
	"royalty-portal/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestList() *backend.LicenseList {
	return &backend.LicenseList{
		CompanyName: "Acme Franchising",
		Licenses: []backend.License{
			{FranchiseNumber: "003", Name: "Northgate", City: "Austin", State: "TX", Active: true},
			{FranchiseNumber: "001", Name: "Downtown", City: "Dallas", State: "TX"},
			{FranchiseNumber: "002", Name: "Austin East", City: "Houston", State: "TX", Active: true},
			{FranchiseNumber: "004", Name: "Lakeside", City: "Austin", State: "TX"},
		},
	}
}

func createLargeList(n int) *backend.LicenseList {
	list := &backend.LicenseList{}
	for i := 1; i <= n; i++ {
		list.Licenses = append(list.Licenses, backend.License{
			FranchiseNumber: fmt.Sprintf("%03d", i),
			Name:            fmt.Sprintf("Location %d", i),
			City:            "Austin",
		})
	}
	return list
}

func numbers(items []Row) []string {
	out := make([]string, 0, len(items))
	for _, r := range items {
		out = append(out, r.FranchiseNumber)
	}
	return out
}

func licenseNumbers(ls []backend.License) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.FranchiseNumber)
	}
	return out
}

// ==========================
// Initial Selection
// ==========================

func TestNewWizard_InitialSelection(t *testing.T) {
	t.Run("first run selects everything", func(t *testing.T) {
		w := NewWizard("realm-1", ModeFirstRun, createTestList(), 25)
		assert.Equal(t, []string{"003", "001", "002", "004"}, w.SelectedNumbers())
	})

	t.Run("manage mode selects active only", func(t *testing.T) {
		w := NewWizard("realm-1", ModeManage, createTestList(), 25)
		assert.Equal(t, []string{"003", "002"}, w.SelectedNumbers())
	})

	t.Run("manage mode with one active of two", func(t *testing.T) {
		list := &backend.LicenseList{Licenses: []backend.License{
			{FranchiseNumber: "001", Active: true},
			{FranchiseNumber: "002", Active: false},
		}}
		w := NewWizard("realm-1", ModeManage, list, 25)
		assert.Equal(t, map[string]bool{"001": true}, w.Selected)
	})

	t.Run("invalid page size falls back", func(t *testing.T) {
		w := NewWizard("realm-1", ModeFirstRun, createTestList(), 7)
		assert.Equal(t, 25, w.Query.Limit)
	})
}

// ==========================
// Selection Mutations
// ==========================

func TestWizard_Toggle(t *testing.T) {
	w := NewWizard("realm-1", ModeManage, createTestList(), 25)

	require.NoError(t, w.Toggle("001"))
	assert.True(t, w.IsSelected("001"))

	require.NoError(t, w.Toggle("001"))
	assert.False(t, w.IsSelected("001"))

	err := w.Toggle("999")
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnknownFranchise))
	assert.NotContains(t, w.Selected, "999")
}

func TestWizard_SelectAllIgnoresFilter(t *testing.T) {
	w := NewWizard("realm-1", ModeManage, createTestList(), 25)
	w.SetSearch("austin")
	require.NoError(t, w.SetStatus(StatusUnselected))

	w.SelectAll()
	assert.Equal(t, []string{"003", "001", "002", "004"}, w.SelectedNumbers())

	w.DeselectAll()
	assert.Empty(t, w.SelectedNumbers())
}

// ==========================
// Search and Filter
// ==========================

func TestWizard_Search(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{query: "austin", want: []string{"003", "002", "004"}},
		{query: "AUSTIN", want: []string{"003", "002", "004"}},
		{query: "00", want: []string{"003", "001", "002", "004"}},
		{query: "down", want: []string{"001"}},
		{query: "houston", want: []string{"002"}},
		{query: "zzz", want: []string{}},
		{query: "  ", want: []string{"003", "001", "002", "004"}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := NewWizard("realm-1", ModeFirstRun, createTestList(), 25)
			w.SetSearch(tt.query)

			got := w.Filtered()
			assert.Equal(t, tt.want, licenseNumbers(got))

			needle := strings.ToLower(strings.TrimSpace(tt.query))
			for _, lic := range got {
				assert.True(t, needle == "" ||
					strings.Contains(strings.ToLower(lic.FranchiseNumber), needle) ||
					strings.Contains(strings.ToLower(lic.Name), needle) ||
					strings.Contains(strings.ToLower(lic.City), needle))
			}
		})
	}
}

func TestWizard_StatusFilter(t *testing.T) {
	w := NewWizard("realm-1", ModeManage, createTestList(), 25)

	require.NoError(t, w.SetStatus(StatusSelected))
	assert.Equal(t, []string{"003", "002"}, licenseNumbers(w.Filtered()))

	require.NoError(t, w.SetStatus(StatusUnselected))
	assert.Equal(t, []string{"001", "004"}, licenseNumbers(w.Filtered()))

	require.NoError(t, w.SetStatus(StatusAll))
	assert.Len(t, w.Filtered(), 4)

	assert.Error(t, w.SetStatus("archived"))
}

// ==========================
// Sorting
// ==========================

func TestWizard_Sort(t *testing.T) {
	w := NewWizard("realm-1", ModeFirstRun, createTestList(), 25)

	require.NoError(t, w.SetSort(SortFranchiseNumber))
	assert.Equal(t, SortAsc, w.Query.SortDir)
	assert.Equal(t, []string{"001", "002", "003", "004"}, licenseNumbers(w.Filtered()))

	require.NoError(t, w.SetSort(SortFranchiseNumber))
	assert.Equal(t, SortDesc, w.Query.SortDir)
	assert.Equal(t, []string{"004", "003", "002", "001"}, licenseNumbers(w.Filtered()))

	require.NoError(t, w.SetSort(SortName))
	assert.Equal(t, SortAsc, w.Query.SortDir)
	assert.Equal(t, []string{"002", "001", "004", "003"}, licenseNumbers(w.Filtered()))

	assert.Error(t, w.SetSort("state"))
}

func TestWizard_SortTiesKeepInputOrder(t *testing.T) {
	w := NewWizard("realm-1", ModeFirstRun, createTestList(), 25)

	require.NoError(t, w.SetSort(SortCity))
	assert.Equal(t, []string{"003", "004", "001", "002"}, licenseNumbers(w.Filtered()))

	require.NoError(t, w.SetSort(SortCity))
	assert.Equal(t, []string{"002", "001", "003", "004"}, licenseNumbers(w.Filtered()))
}

// ==========================
// Pagination
// ==========================

func TestWizard_Pagination(t *testing.T) {
	for _, limit := range PageSizes {
		t.Run(fmt.Sprintf("limit %d", limit), func(t *testing.T) {
			w := NewWizard("realm-1", ModeFirstRun, createLargeList(237), limit)

			view := w.View()
			assert.Equal(t, (237+limit-1)/limit, view.TotalPages)
			assert.LessOrEqual(t, len(view.Items), limit)

			w.SetPage(view.TotalPages)
			last := w.View()
			assert.Equal(t, 237-(view.TotalPages-1)*limit, len(last.Items))
		})
	}
}

func TestWizard_PageResets(t *testing.T) {
	w := NewWizard("realm-1", ModeFirstRun, createLargeList(120), 10)

	w.SetPage(5)
	w.SetSearch("1")
	assert.Equal(t, 1, w.Query.Page)

	w.SetPage(3)
	require.NoError(t, w.SetStatus(StatusSelected))
	assert.Equal(t, 1, w.Query.Page)

	w.SetPage(3)
	require.NoError(t, w.SetLimit(50))
	assert.Equal(t, 1, w.Query.Page)

	assert.Error(t, w.SetLimit(20))
	assert.Equal(t, 50, w.Query.Limit)
}

func TestWizard_ViewClampsPage(t *testing.T) {
	w := NewWizard("realm-1", ModeFirstRun, createLargeList(30), 25)
	w.SetPage(9)

	view := w.View()
	assert.Equal(t, 2, view.Query.Page)
	assert.Equal(t, []string{"026", "027", "028", "029", "030"}, numbers(view.Items))
}

func TestWizard_ViewEmpty(t *testing.T) {
	w := NewWizard("realm-1", ModeFirstRun, &backend.LicenseList{}, 25)

	view := w.View()
	assert.Equal(t, 0, view.TotalPages)
	assert.Empty(t, view.Items)
	assert.Equal(t, 1, view.Query.Page)
}

func TestWizard_Apply(t *testing.T) {
	w := NewWizard("realm-1", ModeFirstRun, createLargeList(60), 10)
	search := "location 1"
	sortField := SortName
	page := 2

	require.NoError(t, w.Apply(QueryUpdate{Search: &search, Sort: &sortField, Page: &page}))
	assert.Equal(t, 2, w.Query.Page)
	assert.Equal(t, SortName, w.Query.SortField)

	view := w.View()
	assert.Equal(t, 11, view.TotalFiltered)
	assert.Equal(t, 2, view.TotalPages)
	assert.Len(t, view.Items, 1)
}
