package runner

import (
	"time"

	"github.com/google/uuid"
)

// TestSuite defines a scripted playthrough.
// Either Steps are run against a fresh session, or Cases names other
// case files to run in order.
type TestSuite struct {
	Name       string         `json:"name"`
	SeedState  map[string]any `json:"seed_state,omitempty"`
	SeedMemory map[string]any `json:"seed_memory,omitempty"`
	Async      bool           `json:"async,omitempty"` // submit turns through the queue
	Steps      []TestStep     `json:"steps,omitempty"`
	Cases      []string       `json:"cases,omitempty"`
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep defines a single turn and its expected outcome.
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	PlayerInput  string       `json:"player_input"`
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a step executes
type Expectations struct {
	Turn      *int           `json:"turn,omitempty"`
	State     map[string]any `json:"state,omitempty"`  // subset of the session state
	Memory    map[string]any `json:"memory,omitempty"` // subset of the session memory
	Fallback  *bool          `json:"fallback,omitempty"`
	ActionsIn []string       `json:"actions_in,omitempty"` // every action type must be one of these

	NarrationContains    []string `json:"narration_contains,omitempty"`
	NarrationNotContains []string `json:"narration_not_contains,omitempty"`
	NarrationRegex       string   `json:"narration_regex,omitempty"`
	NarrationMinLength   *int     `json:"narration_min_length,omitempty"`
	NarrationMaxLength   *int     `json:"narration_max_length,omitempty"`
	MaxActions           *int     `json:"max_actions,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName  string
	StepName  string
	Success   bool
	Error     error
	Duration  time.Duration
	Narration string
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job       TestJob
	Results   []TestResult
	SessionID uuid.UUID
	Duration  time.Duration
	Error     error
}

// Passed counts the successful steps.
func (r TestRunResult) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Success {
			n++
		}
	}
	return n
}
