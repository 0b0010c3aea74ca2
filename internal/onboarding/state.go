// internal/onboarding/state.go
package onboarding

// State is one of Connecting, SelectingFranchises, Complete or Redirect.
type State interface {
	Name() string
	Step() int
}

// Connecting is step 1. RetryPrompt is set when the company lookup failed and
// the user must confirm a retry.
type Connecting struct {
	Manage      bool
	RetryPrompt string
}

// SelectingFranchises is step 2; the license wizard is open.
type SelectingFranchises struct {
	Manage      bool
	CompanyName string
}

// Complete is step 3; it waits for the subscription check.
type Complete struct{}

// Redirect ends the flow.
type Redirect struct {
	To string
}

const (
	NameConnecting          = "connecting"
	NameSelectingFranchises = "selecting_franchises"
	NameComplete            = "complete"
	NameRedirect            = "redirect"
)

func (Connecting) Name() string          { return NameConnecting }
func (SelectingFranchises) Name() string { return NameSelectingFranchises }
func (Complete) Name() string            { return NameComplete }
func (Redirect) Name() string            { return NameRedirect }

func (Connecting) Step() int          { return 1 }
func (SelectingFranchises) Step() int { return 2 }
func (Complete) Step() int            { return 3 }
func (Redirect) Step() int            { return 0 }
