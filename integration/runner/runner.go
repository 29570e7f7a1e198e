package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/jwebster45206/turn-engine/internal/handlers"
	"github.com/jwebster45206/turn-engine/pkg/turn"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes scripted playthroughs against a running turn-engine API
type Runner struct {
	BaseURL           string
	Client            *Client
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	// ForceAsync submits every turn through the queue, whatever the suite says.
	ForceAsync bool
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            NewClient(baseURL),
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		subJobs, err := LoadTestSuiteWithExpansion(filepath.Join(casesDir, caseFile), casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// observation is what a step saw after its turn resolved.
type observation struct {
	Turn     int
	State    turn.Container
	Memory   turn.Container
	Result   turn.TurnResult
	Fallback *bool // unknown for async turns
}

// RunSuite executes a complete test suite on a fresh session
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job:     TestJob{Name: suite.Name, Suite: suite},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	session, err := r.Client.CreateSession(ctx, handlers.CreateSessionRequest{
		State:  suite.SeedState,
		Memory: suite.SeedMemory,
	})
	if err != nil {
		result.Error = fmt.Errorf("failed to seed session: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.SessionID = session.ID
	defer func() {
		if err := r.Client.DeleteSession(context.WithoutCancel(ctx), session.ID); err != nil {
			r.Logger("    warning: failed to delete session %s: %v", session.ID, err)
		}
	}()

	async := suite.Async || r.ForceAsync
	prevTurn := session.Turn

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult, obs := r.runStep(ctx, session.ID, step, prevTurn, async)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
		prevTurn = obs.Turn
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// runStep retries once when the turn did not show up in time.
func (r *Runner) runStep(ctx context.Context, id uuid.UUID, step TestStep, prevTurn int, async bool) (TestResult, observation) {
	var result TestResult
	var obs observation
	for attempt := 1; attempt <= 2; attempt++ {
		result, obs = r.executeStep(ctx, id, step, prevTurn, async)
		if result.Success || !isTimeout(result.Error) {
			return result, obs
		}
		r.Logger("    Timeout detected, retrying step: %s", step.Name)
	}
	return result, obs
}

func isTimeout(err error) bool {
	return err != nil && strings.Contains(err.Error(), "timeout waiting for turn")
}

func (r *Runner) executeStep(ctx context.Context, id uuid.UUID, step TestStep, prevTurn int, async bool) (TestResult, observation) {
	start := time.Now()
	result := TestResult{StepName: step.Name}

	var obs observation
	if async {
		if _, err := r.Client.PostTurnAsync(ctx, id, step.PlayerInput); err != nil {
			result.Error = fmt.Errorf("failed to queue turn: %w", err)
			result.Duration = time.Since(start)
			return result, obs
		}
		s, err := PollForTurn(ctx, r.Client, id, prevTurn)
		if err != nil {
			result.Error = err
			result.Duration = time.Since(start)
			return result, obs
		}
		obs = observation{Turn: s.Turn, State: s.State, Memory: s.Memory}
		if s.LastResult != nil {
			obs.Result = *s.LastResult
		}
	} else {
		st, err := r.Client.PostTurn(ctx, id, step.PlayerInput)
		if err != nil {
			result.Error = fmt.Errorf("failed to post turn: %w", err)
			result.Duration = time.Since(start)
			return result, obs
		}
		fallback := st.Fallback
		obs = observation{Turn: st.Turn, State: st.State, Memory: st.Memory, Result: st.Result, Fallback: &fallback}
	}
	result.Narration = obs.Result.Narration

	if err := checkExpectations(step.Expectations, obs); err != nil {
		result.Error = fmt.Errorf("expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result, obs
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result, obs
}

// checkExpectations validates the step expectations against what the turn produced
func checkExpectations(exp Expectations, obs observation) error {
	if exp.Turn != nil && obs.Turn != *exp.Turn {
		return fmt.Errorf("expected turn %d, got %d", *exp.Turn, obs.Turn)
	}

	if err := checkSubset("state", exp.State, obs.State); err != nil {
		return err
	}
	if err := checkSubset("memory", exp.Memory, obs.Memory); err != nil {
		return err
	}

	if exp.Fallback != nil && obs.Fallback != nil && *exp.Fallback != *obs.Fallback {
		return fmt.Errorf("expected fallback %t, got %t", *exp.Fallback, *obs.Fallback)
	}

	if exp.MaxActions != nil && len(obs.Result.Actions) > *exp.MaxActions {
		return fmt.Errorf("expected at most %d actions, got %d", *exp.MaxActions, len(obs.Result.Actions))
	}
	if len(exp.ActionsIn) > 0 {
		allowed := make(map[string]bool, len(exp.ActionsIn))
		for _, t := range exp.ActionsIn {
			allowed[t] = true
		}
		for _, a := range obs.Result.Actions {
			if !allowed[string(a.Type)] {
				return fmt.Errorf("unexpected action type %q, allowed: %v", a.Type, exp.ActionsIn)
			}
		}
	}

	narration := obs.Result.Narration
	lower := strings.ToLower(narration)
	for _, want := range exp.NarrationContains {
		if !strings.Contains(lower, strings.ToLower(want)) {
			return fmt.Errorf("expected narration to contain '%s', but it didn't", want)
		}
	}
	for _, unwanted := range exp.NarrationNotContains {
		if strings.Contains(lower, strings.ToLower(unwanted)) {
			return fmt.Errorf("expected narration to NOT contain '%s', but it did", unwanted)
		}
	}

	if exp.NarrationRegex != "" {
		matched, err := regexp.MatchString(exp.NarrationRegex, narration)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("narration didn't match regex pattern: %s", exp.NarrationRegex)
		}
	}

	if exp.NarrationMinLength != nil && len(narration) < *exp.NarrationMinLength {
		return fmt.Errorf("expected narration length >= %d, got %d", *exp.NarrationMinLength, len(narration))
	}
	if exp.NarrationMaxLength != nil && len(narration) > *exp.NarrationMaxLength {
		return fmt.Errorf("expected narration length <= %d, got %d", *exp.NarrationMaxLength, len(narration))
	}

	return nil
}

// checkSubset requires every expected key to be present with an equal value.
func checkSubset(name string, expected map[string]any, actual turn.Container) error {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok {
			return fmt.Errorf("expected %s key %s to be set, but it doesn't exist", name, key)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			return fmt.Errorf("%s key %s mismatch (-want +got):\n%s", name, key, diff)
		}
	}
	return nil
}
