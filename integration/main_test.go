//go:build integration

package integration

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/turn-engine/integration/runner"
)

var caseFlag = flag.String("case", "", "Name of test case to run (from integration/cases/)")
var errFlag = flag.String("err", "continue", "Error handling mode: 'continue' (run all steps) or 'exit' (stop on first failure)")
var runsFlag = flag.Int("runs", 1, "Number of times to run each test suite (useful for testing non-deterministic behavior)")
var asyncFlag = flag.Bool("async", false, "Submit every turn through the worker queue")

func apiBaseURL() string {
	if url := os.Getenv("API_BASE_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func newRunner(mode runner.ErrorHandlingMode) *runner.Runner {
	r := runner.NewRunner(apiBaseURL())
	r.ErrorHandlingMode = mode
	r.ForceAsync = *asyncFlag
	r.Logger = func(format string, args ...interface{}) {
		fmt.Printf(format+"\n", args...)
	}
	return r
}

func TestIntegrationSuites(t *testing.T) {
	if *caseFlag != "" {
		t.Skip("Single case requested")
	}

	testFiles, err := filepath.Glob(filepath.Join("cases", "*.json"))
	if err != nil {
		t.Fatalf("Failed to discover test files: %v", err)
	}
	if len(testFiles) == 0 {
		t.Fatal("No test files found in cases directory")
	}

	var jobs []runner.TestJob
	for _, file := range testFiles {
		expanded, err := runner.LoadTestSuiteWithExpansion(file, "cases")
		if err != nil {
			t.Errorf("Failed to load test suite %s: %v", file, err)
			continue
		}
		jobs = append(jobs, expanded...)
	}

	runJobs(t, newRunner(runner.ErrorHandlingContinue), jobs, 1)
}

// TestSingleSuite runs the cases named by -case, comma-separated
func TestSingleSuite(t *testing.T) {
	if *caseFlag == "" {
		t.Skip("Skipping single suite test (use -case flag to run)")
	}
	if *errFlag != "exit" && *errFlag != "continue" {
		t.Fatalf("Invalid -err flag value: %s (must be 'exit' or 'continue')", *errFlag)
	}
	if *runsFlag < 1 {
		t.Fatalf("Number of runs must be >= 1, got: %d", *runsFlag)
	}

	var jobs []runner.TestJob
	for _, name := range strings.Split(*caseFlag, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !strings.HasSuffix(name, ".json") {
			name += ".json"
		}
		expanded, err := runner.LoadTestSuiteWithExpansion(filepath.Join("cases", name), "cases")
		if err != nil {
			t.Fatalf("Failed to load test suite %s: %v", name, err)
		}
		jobs = append(jobs, expanded...)
	}

	mode := runner.ErrorHandlingMode(*errFlag)
	if *runsFlag > 1 {
		// Multi-run always collects complete statistics.
		mode = runner.ErrorHandlingContinue
	}
	runJobs(t, newRunner(mode), jobs, *runsFlag)
}

func runJobs(t *testing.T, r *runner.Runner, jobs []runner.TestJob, runs int) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	passes := make(map[string]int)
	failures := make(map[string]int)

	for run := 1; run <= runs; run++ {
		if runs > 1 {
			t.Logf("=== RUN %d/%d ===", run, runs)
		}
		for i, job := range jobs {
			t.Logf("[%d/%d] Starting test suite: %s (%d steps)", i+1, len(jobs), job.Name, len(job.Suite.Steps))

			result, err := r.RunSuite(ctx, job.Suite)
			t.Logf("Session ID: %s", result.SessionID)

			for _, step := range result.Results {
				if step.Success {
					t.Logf("   ✓ %s (%v)", step.StepName, step.Duration)
				} else {
					t.Logf("   ✗ %s: %v", step.StepName, step.Error)
				}
			}

			if err != nil {
				failures[job.Name]++
				t.Errorf("[%d/%d] FAILED: Test suite '%s' failed: %v", i+1, len(jobs), job.Name, err)
				continue
			}
			passes[job.Name]++
			t.Logf("[%d/%d] PASSED: Test suite '%s' completed in %v", i+1, len(jobs), job.Name, result.Duration)
		}
	}

	if runs > 1 {
		t.Log("Per-suite statistics:")
		for _, job := range jobs {
			total := passes[job.Name] + failures[job.Name]
			if total == 0 {
				continue
			}
			t.Logf("  %s: %d/%d passes (%.1f%%)", job.Name, passes[job.Name], total, float64(passes[job.Name])/float64(total)*100)
			if passes[job.Name] > 0 && failures[job.Name] > 0 {
				t.Logf("    FLAKY: this suite both passed and failed across runs")
			}
		}
	}
}
