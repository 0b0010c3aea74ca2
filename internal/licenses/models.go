// internal/licenses/models.go
package licenses

// Mode selects how the initial Selection Set is derived.
type Mode string

const (
	// ModeFirstRun preselects every loaded franchise.
	ModeFirstRun Mode = "first_run"
	// ModeManage preselects only franchises currently active in QuickBooks.
	ModeManage Mode = "manage"
)

func ParseMode(s string) Mode {
	if s == string(ModeManage) {
		return ModeManage
	}
	return ModeFirstRun
}

type StatusFilter string

const (
	StatusAll        StatusFilter = "all"
	StatusSelected   StatusFilter = "selected"
	StatusUnselected StatusFilter = "unselected"
)

type SortField string

const (
	SortNone            SortField = ""
	SortFranchiseNumber SortField = "franchise_number"
	SortName            SortField = "name"
	SortCity            SortField = "city"
)

type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// PageSizes are the accepted page sizes.
var PageSizes = []int{10, 25, 50, 100}

func validPageSize(n int) bool {
	for _, s := range PageSizes {
		if s == n {
			return true
		}
	}
	return false
}

// Query is the client-side search, filter, sort and pagination state.
type Query struct {
	Search    string       `json:"search"`
	Status    StatusFilter `json:"status"`
	SortField SortField    `json:"sort_field,omitempty"`
	SortDir   SortDir      `json:"sort_dir"`
	Page      int          `json:"page"`
	Limit     int          `json:"limit"`
}

// Row is one franchise as shown in the wizard table.
type Row struct {
	FranchiseNumber string `json:"franchise_number"`
	Name            string `json:"name"`
	City            string `json:"city"`
	State           string `json:"state"`
	Active          bool   `json:"active"`
	Selected        bool   `json:"selected"`
}

// View is the rendered page of the wizard.
type View struct {
	RealmID       string `json:"realm_id"`
	Mode          Mode   `json:"mode"`
	CompanyName   string `json:"company_name"`
	Query         Query  `json:"query"`
	Items         []Row  `json:"items"`
	TotalLicenses int    `json:"total_licenses"`
	TotalFiltered int    `json:"total_filtered"`
	TotalPages    int    `json:"total_pages"`
	SelectedCount int    `json:"selected_count"`
}

// QueryUpdate is the body of POST /api/wizard/query. Nil fields are left alone.
type QueryUpdate struct {
	Search *string       `json:"search"`
	Status *StatusFilter `json:"status"`
	Sort   *SortField    `json:"sort"`
	Limit  *int          `json:"limit"`
	Page   *int          `json:"page"`
}

// SaveResult is returned after a successful selection save.
type SaveResult struct {
	Response map[string]interface{} `json:"response"`
	Next     string                 `json:"next,omitempty"`
}
