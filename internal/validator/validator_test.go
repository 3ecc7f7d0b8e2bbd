package validator

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
)

// scriptedRunner replays canned build results in call order.
type scriptedRunner struct {
	tool    schemas.BuildToolKind
	results []*schemas.BuildResult
	errs    []error
	calls   int
}

func (r *scriptedRunner) Run(ctx context.Context, goals ...schemas.Goal) (*schemas.BuildResult, error) {
	i := r.calls
	r.calls++
	if i < len(r.errs) && r.errs[i] != nil {
		return nil, r.errs[i]
	}
	if i < len(r.results) {
		return r.results[i], nil
	}
	return &schemas.BuildResult{Success: true}, nil
}

func (r *scriptedRunner) Tool() schemas.BuildToolKind {
	if r.tool == "" {
		return schemas.BuildToolMaven
	}
	return r.tool
}

func mavenTestOutput(total, failures, errors, skipped int) string {
	return fmt.Sprintf("[INFO] Results:\n[INFO] Tests run: %d, Failures: %d, Errors: %d, Skipped: %d\n",
		total, failures, errors, skipped)
}

func TestValidateFixes_CleanPass(t *testing.T) {
	runner := &scriptedRunner{results: []*schemas.BuildResult{
		{Success: true, Output: "[INFO] BUILD SUCCESS"},
		{Success: true, Output: "Tests run: 25, Failures: 0, Errors: 0, Skipped: 0"},
	}}
	v := New(zap.NewNop(), runner)

	report, err := v.ValidateFixes(context.Background(), schemas.FixContext{})
	require.NoError(t, err)

	assert.True(t, report.BuildPassed)
	assert.True(t, report.TestsPassed)
	assert.True(t, report.ShouldCreatePR)
	assert.Equal(t, 25, report.TestResults.Total)
	assert.Equal(t, 0, report.TestResults.Failed)
}

func TestValidateFixes_CompileFailureBlocks(t *testing.T) {
	runner := &scriptedRunner{results: []*schemas.BuildResult{
		{Success: false, ExitCode: 1, Output: "[ERROR] /src/Foo.java:[10,5] cannot find symbol\nBUILD FAILED"},
	}}
	v := New(zap.NewNop(), runner)

	report, err := v.ValidateFixes(context.Background(), schemas.FixContext{})
	require.NoError(t, err)

	assert.False(t, report.BuildPassed)
	assert.False(t, report.ShouldCreatePR)
	assert.Equal(t, schemas.GateCompile, report.BlockedGate)
	assert.NotEmpty(t, report.Errors)
	// Only the build step ran; the test suite must not have been invoked.
	assert.Equal(t, 1, runner.calls)
}

func TestValidateFixes_FailureRateThresholds(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		failed   int
		critical bool
		wantPR   bool
		wantGate schemas.Gate
	}{
		{name: "non-critical under 20 percent", total: 100, failed: 19, wantPR: true},
		{name: "non-critical at 20 percent", total: 100, failed: 20, wantPR: false, wantGate: schemas.GateTestRate},
		{name: "non-critical above 20 percent", total: 100, failed: 21, wantPR: false, wantGate: schemas.GateTestRate},
		{name: "critical under 5 percent", total: 100, failed: 4, critical: true, wantPR: true},
		{name: "critical at 5 percent", total: 100, failed: 5, critical: true, wantPR: false, wantGate: schemas.GateTestRate},
		{name: "all failing", total: 10, failed: 10, wantPR: false, wantGate: schemas.GateTestRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &scriptedRunner{results: []*schemas.BuildResult{
				{Success: true, Output: "[INFO] BUILD SUCCESS"},
				{Success: tt.failed == 0, Output: mavenTestOutput(tt.total, tt.failed, 0, 0) +
					"org.junit.ComparisonFailure: expected <4> but was <5>"},
			}}
			v := New(zap.NewNop(), runner)

			report, err := v.ValidateFixes(context.Background(), schemas.FixContext{IsCritical: tt.critical})
			require.NoError(t, err)

			assert.True(t, report.BuildPassed)
			assert.Equal(t, tt.wantPR, report.ShouldCreatePR)
			if !tt.wantPR {
				assert.Equal(t, tt.wantGate, report.BlockedGate)
			}
			// A positive verdict always rides on a passing build.
			if report.ShouldCreatePR {
				assert.True(t, report.BuildPassed)
			}
		})
	}
}

func TestValidateFixes_DependencyFailureAlwaysBlocks(t *testing.T) {
	// Two failures out of one hundred is far under every threshold, but the
	// failure message implicates the dependency change itself.
	runner := &scriptedRunner{results: []*schemas.BuildResult{
		{Success: true, Output: "[INFO] BUILD SUCCESS"},
		{Success: false, Output: mavenTestOutput(100, 2, 0, 0) +
			"java.lang.NoClassDefFoundError: org/apache/commons/lang3/StringUtils"},
	}}
	v := New(zap.NewNop(), runner)

	report, err := v.ValidateFixes(context.Background(), schemas.FixContext{})
	require.NoError(t, err)

	assert.False(t, report.ShouldCreatePR)
	assert.Equal(t, schemas.GateDependencyFailure, report.BlockedGate)
}

func TestValidateFixes_DependencyFailureOutranksRateGate(t *testing.T) {
	// Every test failing would also trip the rate gate, but the output carries
	// a dependency signature; the more diagnostic gate must be reported.
	runner := &scriptedRunner{results: []*schemas.BuildResult{
		{Success: true, Output: "[INFO] BUILD SUCCESS"},
		{Success: false, Output: mavenTestOutput(10, 10, 0, 0) +
			"java.lang.NoSuchMethodError: com.acme.util.Builder.create"},
	}}
	v := New(zap.NewNop(), runner)

	report, err := v.ValidateFixes(context.Background(), schemas.FixContext{})
	require.NoError(t, err)

	assert.False(t, report.ShouldCreatePR)
	assert.Equal(t, schemas.GateDependencyFailure, report.BlockedGate)
}

func TestValidateFixes_UnrelatedFailuresUnderLimitPass(t *testing.T) {
	runner := &scriptedRunner{results: []*schemas.BuildResult{
		{Success: true, Output: "[INFO] BUILD SUCCESS"},
		{Success: false, Output: mavenTestOutput(100, 2, 0, 0) +
			"org.junit.ComparisonFailure: flaky timing assertion"},
	}}
	v := New(zap.NewNop(), runner)

	report, err := v.ValidateFixes(context.Background(), schemas.FixContext{})
	require.NoError(t, err)

	assert.True(t, report.ShouldCreatePR)
	assert.False(t, report.TestsPassed)
	assert.NotEmpty(t, report.Warnings)
}

func TestValidateFixes_RunnerErrorPropagates(t *testing.T) {
	runner := &scriptedRunner{errs: []error{fmt.Errorf("mvn: command not found")}}
	v := New(zap.NewNop(), runner)

	report, err := v.ValidateFixes(context.Background(), schemas.FixContext{})
	require.Error(t, err)
	assert.Nil(t, report)
}

func TestParseTestSummary(t *testing.T) {
	tests := []struct {
		name   string
		tool   schemas.BuildToolKind
		output string
		want   schemas.TestResults
	}{
		{
			name:   "maven aggregate wins over per-class lines",
			tool:   schemas.BuildToolMaven,
			output: "Tests run: 5, Failures: 1, Errors: 0, Skipped: 0\nTests run: 30, Failures: 2, Errors: 1, Skipped: 3",
			want:   schemas.TestResults{Total: 30, Passed: 24, Failed: 3, Skipped: 3},
		},
		{
			name:   "maven failures plus errors count as failed",
			tool:   schemas.BuildToolMaven,
			output: "Tests run: 10, Failures: 1, Errors: 2, Skipped: 0",
			want:   schemas.TestResults{Total: 10, Passed: 7, Failed: 3},
		},
		{
			name:   "gradle summary",
			tool:   schemas.BuildToolGradle,
			output: "100 tests completed, 2 failed, 1 skipped",
			want:   schemas.TestResults{Total: 100, Passed: 97, Failed: 2, Skipped: 1},
		},
		{
			name:   "gradle without skipped",
			tool:   schemas.BuildToolGradle,
			output: "12 tests completed, 4 failed",
			want:   schemas.TestResults{Total: 12, Passed: 8, Failed: 4},
		},
		{
			name: "no summary at all",
			tool: schemas.BuildToolMaven,
			want: schemas.TestResults{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseTestSummary(tt.output, tt.tool)
			assert.Equal(t, tt.want, got)
		})
	}
}
