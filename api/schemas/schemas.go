package schemas

import (
	"strconv"
	"time"
)

// -- Category / Severity Enums --

// Category identifies the kind of fixable problem extracted from build output.
// The first five categories have dedicated handlers; the remainder are
// produced by the log classifier for reporting and prioritization.
type Category string

const (
	CategoryDeprecatedMethod    Category = "deprecated_method"
	CategoryAPISignatureChange  Category = "api_signature_change"
	CategoryDependencyScope     Category = "dependency_scope"
	CategoryRemovedClass        Category = "removed_class_or_package"
	CategoryMultiFileChange     Category = "multi_file_change"
	CategoryCompilationError    Category = "compilation_error"
	CategoryDependencyConflict  Category = "dependency_conflict"
	CategoryAPIIncompatibility  Category = "api_incompatibility"
	CategoryClassNotFound       Category = "class_not_found"
	CategoryMethodNotFound      Category = "method_not_found"
	CategoryPackageNotFound     Category = "package_not_found"
	CategoryTypeIncompatibility Category = "type_incompatibility"
)

// HandlerCategories lists the categories that have a dedicated fix handler,
// in the fixed order fixes must be applied. Dependency/scope fixes change
// which symbols exist before source-level fixes reference them; removed-class
// replacement must precede call-site adaptation; multi-file coordination goes
// last because it may depend on single-file fixes already being in place.
var HandlerCategories = []Category{
	CategoryDependencyScope,
	CategoryRemovedClass,
	CategoryDeprecatedMethod,
	CategoryAPISignatureChange,
	CategoryMultiFileChange,
}

// Severity grades how disruptive an issue is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// -- Version Change Schemas --

// Significance classifies a version transition.
type Significance string

const (
	SignificanceMajor      Significance = "major"
	SignificanceMinor      Significance = "minor"
	SignificancePatch      Significance = "patch"
	SignificanceAddition   Significance = "addition"
	SignificanceRemoval    Significance = "removal"
	SignificancePreRelease Significance = "pre_release"
)

// ElementKind identifies where in the manifest a change occurred.
type ElementKind string

const (
	ElementDependency ElementKind = "dependency"
	ElementPlugin     ElementKind = "plugin"
	ElementParent     ElementKind = "parent"
	ElementProperty   ElementKind = "property"
)

// VersionChange describes one dependency transition between two manifest
// revisions. Immutable once created.
type VersionChange struct {
	DependencyID string       `json:"dependency_id"`
	OldVersion   string       `json:"old_version"`
	NewVersion   string       `json:"new_version"`
	Significance Significance `json:"significance"`
	ElementKind  ElementKind  `json:"element_kind"`
}

// -- Issue / Fix Schemas --

// Issue is a classified, fixable problem extracted from build/test output.
// Never mutated after creation; consumed exactly once by fix generation.
type Issue struct {
	Category   Category `json:"category"`
	File       string   `json:"file"`
	Line       int      `json:"line"`
	Message    string   `json:"message"`
	// Context carries a few surrounding log lines for downstream fix generation.
	Context    string   `json:"context,omitempty"`
	Confidence float64  `json:"confidence"`
	Severity   Severity `json:"severity"`
	RawLogLine string   `json:"raw_log_line"`
}

// Key returns the deduplication identity of an issue.
func (i Issue) Key() string {
	return string(i.Category) + "|" + i.Message + "|" + i.File + ":" + strconv.Itoa(i.Line)
}

// LineRange is an inclusive span of lines within a file.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Fix is a proposed code/config change addressing one Issue. Applied exactly
// once to the working tree; logically void if validation fails and the tree
// is reverted.
type Fix struct {
	ID                string      `json:"id"`
	Category          Category    `json:"category"`
	TargetFile        string      `json:"target_file"`
	LineNumber        int         `json:"line_number"`
	LineRanges        []LineRange `json:"line_ranges,omitempty"`
	OldCode           string      `json:"old_code"`
	NewCode           string      `json:"new_code"`
	AdditionalImports []string    `json:"additional_imports,omitempty"`
	RemovedImports    []string    `json:"removed_imports,omitempty"`
	Explanation       string      `json:"explanation"`
	Confidence        float64     `json:"confidence"`
	// CoordinatedWith lists other files that must be changed atomically with
	// this one (multi-file fixes).
	CoordinatedWith []string `json:"coordinated_with,omitempty"`
	// ManualReview marks a stub fix that inserts an inert marker instead of a
	// real change, so the issue still surfaces in the result.
	ManualReview bool `json:"manual_review"`
}

// AppliedFix records the outcome of applying one fix. A failed application
// does not abort sibling fixes; it is carried in the result instead.
type AppliedFix struct {
	Fix     Fix    `json:"fix"`
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

// FileGroup collects source files that reference the same class/method
// symbols and therefore must be fixed together.
type FileGroup struct {
	Files            []string `json:"files"`
	RelationshipKind string   `json:"relationship_kind"`
	AffectedSymbols  []string `json:"affected_symbols"`
}

// -- Build Schemas --

// BuildToolKind names a supported build tool.
type BuildToolKind string

const (
	BuildToolMaven  BuildToolKind = "maven"
	BuildToolGradle BuildToolKind = "gradle"
)

// Goal is a build-tool-agnostic build step. Each tool maps goals to its own
// invocation syntax.
type Goal string

const (
	GoalClean          Goal = "clean"
	GoalCompile        Goal = "compile"
	GoalTest           Goal = "test"
	GoalDependencyList Goal = "dependency-list"
)

// BuildResult captures the outcome of one build-tool subprocess run. A
// non-zero exit code is a normal unsuccessful result, not an error.
type BuildResult struct {
	Success  bool          `json:"success"`
	ExitCode int           `json:"exit_code"`
	// Output is stdout and stderr concatenated in arrival order.
	Output   string        `json:"output"`
	TimedOut bool          `json:"timed_out"`
	Duration time.Duration `json:"duration"`
}

// -- Validation Schemas --

// TestResults is the parsed test-suite summary.
type TestResults struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Gate names the specific validation gate that blocked a run, so a human can
// diagnose without re-running the build.
type Gate string

const (
	GateCompile           Gate = "compile"
	GateTestRate          Gate = "test-rate"
	GateDependencyFailure Gate = "dependency-failure"
)

// ValidationReport is the single source of truth for the publish decision.
// Invariant: ShouldCreatePR == true implies BuildPassed == true.
type ValidationReport struct {
	BuildPassed    bool        `json:"build_passed"`
	TestsPassed    bool        `json:"tests_passed"`
	TestResults    TestResults `json:"test_results"`
	Errors         []string    `json:"errors,omitempty"`
	Warnings       []string    `json:"warnings,omitempty"`
	ShouldCreatePR bool        `json:"should_create_pr"`
	// BlockedGate is set when ShouldCreatePR is false.
	BlockedGate Gate `json:"blocked_gate,omitempty"`
}

// FixContext is the immutable per-run context threaded through the pipeline:
// the scratch checkout, the tool in use, and the triggering version change.
type FixContext struct {
	RepoPath   string        `json:"repo_path"`
	BuildTool  BuildToolKind `json:"build_tool"`
	Library    string        `json:"library"`
	OldVersion string        `json:"old_version"`
	NewVersion string        `json:"new_version"`
	// IsCritical tightens the acceptable test-failure rate from 20% to 5%.
	// Set for major-version bumps and name-listed critical dependencies.
	IsCritical bool `json:"is_critical"`
}

// -- Risk Schemas --

// RiskLevel is the aggregate risk grade for a set of version changes.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskAssessment scores a set of version changes to decide whether the full
// fix pipeline should run at all.
type RiskAssessment struct {
	Level           RiskLevel `json:"level"`
	Score           int       `json:"score"`
	Recommendations []string  `json:"recommendations"`
}

// -- Orchestration Schemas --

// PipelineState tracks the orchestrator's progress through its phases.
type PipelineState string

const (
	StateDetecting  PipelineState = "DETECTING"
	StateGenerating PipelineState = "GENERATING"
	StateApplying   PipelineState = "APPLYING"
	StateValidating PipelineState = "VALIDATING"
	StateApproved   PipelineState = "APPROVED"
	StateBlocked    PipelineState = "BLOCKED"
)

// OrchestrationResult aggregates everything one pipeline run produced. It is
// populated phase by phase, finalized once validation returns, and read-only
// afterward.
type OrchestrationResult struct {
	RunID           string            `json:"run_id"`
	State           PipelineState     `json:"state"`
	StartedAt       time.Time         `json:"started_at"`
	FinishedAt      time.Time         `json:"finished_at"`
	IssuesFound     int               `json:"issues_found"`
	Issues          []Issue           `json:"issues"`
	FixesByCategory map[Category]int  `json:"fixes_by_category"`
	AppliedFixes    []AppliedFix      `json:"applied_fixes"`
	FailedFixes     int               `json:"failed_fixes"`
	Validation      *ValidationReport `json:"validation,omitempty"`
	// BlockedReason names the gate that failed when State is BLOCKED.
	BlockedReason string `json:"blocked_reason,omitempty"`
	Summary       string `json:"summary"`
}

// PullRequest identifies a created pull request on the hosting service.
type PullRequest struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
}

// -- Fix Generation Wire Contract --

// GenerationRequest is the payload sent to the external fix-generation
// service for a single issue.
type GenerationRequest struct {
	Category      Category `json:"category"`
	LibraryName   string   `json:"library_name"`
	OldVersion    string   `json:"old_version"`
	NewVersion    string   `json:"new_version"`
	SourceContext string   `json:"source_context"`
	TargetFile    string   `json:"target_file"`
	TargetLine    int      `json:"target_line"`
	Imports       []string `json:"imports,omitempty"`
	// Files is populated for multi-file group requests; one coordinated
	// response covers all of them.
	Files []string `json:"files,omitempty"`
}

// FileFix is one per-file change inside a coordinated multi-file response.
type FileFix struct {
	File              string   `json:"file"`
	TargetLine        int      `json:"target_line"`
	OldCode           string   `json:"old_code"`
	ReplacementCode   string   `json:"replacement_code"`
	AdditionalImports []string `json:"additional_imports,omitempty"`
}

// GenerationResponse is the fix-generation service reply. Success may be
// false, and any field may be missing; callers must tolerate malformed
// responses and fall back to static substitution.
type GenerationResponse struct {
	Success           bool      `json:"success"`
	ReplacementCode   string    `json:"replacement_code"`
	AdditionalImports []string  `json:"additional_imports,omitempty"`
	RemovedImports    []string  `json:"removed_imports,omitempty"`
	Explanation       string    `json:"explanation"`
	Confidence        float64   `json:"confidence"`
	Files             []FileFix `json:"files,omitempty"`
}

