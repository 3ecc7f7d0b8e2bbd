package validator

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
)

// Acceptance thresholds. These are a hard contract: critical updates (major
// bumps or name-listed critical dependencies) tolerate under 5% failing
// tests, everything else under 20%, and dependency-caused failures always
// block regardless of rate.
const (
	CriticalFailureRateLimit = 0.05
	NormalFailureRateLimit   = 0.20
)

// dependencyFailureRe matches test-failure messages caused by the dependency
// change itself rather than by flaky or unrelated tests.
var dependencyFailureRe = regexp.MustCompile(`(NoClassDefFoundError|ClassNotFoundException|NoSuchMethodError|cannot find symbol|package\s+[\w.]+\s+does not exist|method not found|version conflict|conflicting versions)`)

// compileErrorRe extracts the compiler error lines reported on a failed build.
var compileErrorRe = regexp.MustCompile(`(?m)^(?:\[ERROR\].*|.*\.java:\d+:\s*error:.*)$`)

// Test summary shapes per build tool.
var (
	// Maven/Surefire: "Tests run: 25, Failures: 0, Errors: 0, Skipped: 1"
	mavenSummaryRe = regexp.MustCompile(`Tests run:\s*(\d+),\s*Failures:\s*(\d+)(?:,\s*Errors:\s*(\d+))?(?:,\s*Skipped:\s*(\d+))?`)
	// Gradle: "100 tests completed, 2 failed, 1 skipped"
	gradleSummaryRe = regexp.MustCompile(`(\d+) tests completed(?:, (\d+) failed)?(?:, (\d+) skipped)?`)
)

// Validator is the publish gate: it rebuilds and retests the repository
// after fixes are applied and decides whether the result is safe to propose.
type Validator struct {
	logger *zap.Logger
	runner schemas.BuildRunner
}

// New creates a validator bound to a build runner.
func New(logger *zap.Logger, runner schemas.BuildRunner) *Validator {
	return &Validator{
		logger: logger.Named("validator"),
		runner: runner,
	}
}

// ValidateFixes runs the full gate: clean build, then tests, then the
// acceptance policy. A blocked verdict is a normal negative result, not an
// error; errors are reserved for subprocess launch failures.
func (v *Validator) ValidateFixes(ctx context.Context, fixCtx schemas.FixContext) (*schemas.ValidationReport, error) {
	report := &schemas.ValidationReport{}

	// Step 1: clean build. A compile failure stops everything.
	buildRes, err := v.runner.Run(ctx, schemas.GoalClean, schemas.GoalCompile)
	if err != nil {
		return nil, fmt.Errorf("validation build failed to launch: %w", err)
	}
	if !buildRes.Success {
		report.BuildPassed = false
		report.ShouldCreatePR = false
		report.BlockedGate = schemas.GateCompile
		report.Errors = compileErrors(buildRes.Output)
		if buildRes.TimedOut {
			report.Errors = append(report.Errors, "execution_timeout: build exceeded the configured limit")
		}
		v.logger.Info("Validation blocked at compile gate", zap.Int("errors", len(report.Errors)))
		return report, nil
	}
	report.BuildPassed = true

	// Step 2: test suite.
	testRes, err := v.runner.Run(ctx, schemas.GoalTest)
	if err != nil {
		return nil, fmt.Errorf("validation test run failed to launch: %w", err)
	}
	report.TestResults = parseTestSummary(testRes.Output, v.runner.Tool())
	report.TestsPassed = report.TestResults.Failed == 0

	// Step 3: acceptance policy.
	v.applyAcceptancePolicy(report, testRes.Output, fixCtx)

	v.logger.Info("Validation complete",
		zap.Bool("build_passed", report.BuildPassed),
		zap.Bool("tests_passed", report.TestsPassed),
		zap.Int("failed", report.TestResults.Failed),
		zap.Int("total", report.TestResults.Total),
		zap.Bool("should_create_pr", report.ShouldCreatePR),
		zap.String("blocked_gate", string(report.BlockedGate)),
	)
	return report, nil
}

// applyAcceptancePolicy fills ShouldCreatePR. Zero failures approve. A
// dependency-failure signature in the output blocks regardless of rate, so it
// is checked first and names the gate. Otherwise the failure rate decides
// against the applicable threshold.
func (v *Validator) applyAcceptancePolicy(report *schemas.ValidationReport, testOutput string, fixCtx schemas.FixContext) {
	failed := report.TestResults.Failed
	total := report.TestResults.Total

	if failed == 0 {
		report.ShouldCreatePR = true
		return
	}

	limit := NormalFailureRateLimit
	if fixCtx.IsCritical {
		limit = CriticalFailureRateLimit
	}

	failureRate := 1.0
	if total > 0 {
		failureRate = float64(failed) / float64(total)
	}
	report.Warnings = append(report.Warnings,
		fmt.Sprintf("%d of %d tests failed (rate %.2f, limit %.2f)", failed, total, failureRate, limit))

	if sig := dependencyFailureRe.FindString(testOutput); sig != "" {
		report.ShouldCreatePR = false
		report.BlockedGate = schemas.GateDependencyFailure
		report.Errors = append(report.Errors, "dependency-related test failure: "+sig)
		return
	}

	if failureRate >= limit {
		report.ShouldCreatePR = false
		report.BlockedGate = schemas.GateTestRate
		return
	}

	report.ShouldCreatePR = true
}

// parseTestSummary extracts the test counts from tool output. Maven prints a
// per-class line and a final "Results:" block; the last match is the
// aggregate, so that one wins.
func parseTestSummary(output string, tool schemas.BuildToolKind) schemas.TestResults {
	var results schemas.TestResults
	switch tool {
	case schemas.BuildToolGradle:
		if ms := gradleSummaryRe.FindAllStringSubmatch(output, -1); len(ms) > 0 {
			m := ms[len(ms)-1]
			results.Total = atoi(m[1])
			results.Failed = atoi(m[2])
			results.Skipped = atoi(m[3])
			results.Passed = results.Total - results.Failed - results.Skipped
		}
	default:
		if ms := mavenSummaryRe.FindAllStringSubmatch(output, -1); len(ms) > 0 {
			m := ms[len(ms)-1]
			results.Total = atoi(m[1])
			results.Failed = atoi(m[2]) + atoi(m[3])
			results.Skipped = atoi(m[4])
			results.Passed = results.Total - results.Failed - results.Skipped
		}
	}
	if results.Passed < 0 {
		results.Passed = 0
	}
	return results
}

// compileErrors pulls the error lines out of a failed build's output, capped
// to keep reports readable.
func compileErrors(output string) []string {
	matches := compileErrorRe.FindAllString(output, -1)
	var errs []string
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if m == "" || strings.HasPrefix(m, "[ERROR] [") {
			continue
		}
		errs = append(errs, m)
		if len(errs) >= 50 {
			break
		}
	}
	if len(errs) == 0 {
		errs = append(errs, "build failed; see captured output")
	}
	return errs
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
