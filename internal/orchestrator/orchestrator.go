package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
	"github.com/EnockMagara/dependafix-sub000/internal/classify"
	"github.com/EnockMagara/dependafix-sub000/internal/config"
	"github.com/EnockMagara/dependafix-sub000/internal/handlers"
	"github.com/EnockMagara/dependafix-sub000/internal/validator"
)

// Orchestrator drives one fix run through its phases: detect issues from a
// failing build, generate a fix per issue, apply fixes in the fixed category
// order, and validate the result. State only ever moves forward; a run ends
// APPROVED or BLOCKED.
type Orchestrator struct {
	logger      *zap.Logger
	cfg         *config.Config
	registry    *handlers.Registry
	classifier  *classify.Classifier
	runner      schemas.BuildRunner
	validator   *validator.Validator
	applier     *handlers.Applier
	snapshotter *Snapshotter
	clock       schemas.Clock
}

// New wires an orchestrator from its collaborators.
func New(logger *zap.Logger, cfg *config.Config, registry *handlers.Registry, runner schemas.BuildRunner, v *validator.Validator) *Orchestrator {
	return &Orchestrator{
		logger:      logger.Named("orchestrator"),
		cfg:         cfg,
		registry:    registry,
		classifier:  classify.NewClassifier(logger),
		runner:      runner,
		validator:   v,
		applier:     handlers.NewApplier(logger),
		snapshotter: NewSnapshotter(logger, cfg.Git),
		clock:       schemas.RealClock{},
	}
}

// WithClock overrides the time source, for tests.
func (o *Orchestrator) WithClock(clock schemas.Clock) *Orchestrator {
	o.clock = clock
	return o
}

// Run executes the full pipeline for one dependency update.
func (o *Orchestrator) Run(ctx context.Context, fixCtx schemas.FixContext, change *schemas.VersionChange) (*schemas.OrchestrationResult, error) {
	result := &schemas.OrchestrationResult{
		RunID:           uuid.NewString(),
		State:           schemas.StateDetecting,
		StartedAt:       o.clock.Now(),
		FixesByCategory: make(map[schemas.Category]int),
	}
	o.logger.Info("Pipeline run starting",
		zap.String("run_id", result.RunID),
		zap.String("repo", fixCtx.RepoPath),
		zap.String("library", fixCtx.Library))

	// -- DETECTING --
	output, alreadyHealthy, err := o.collectBuildOutput(ctx)
	if err != nil {
		return nil, err
	}
	if alreadyHealthy {
		result.State = schemas.StateApproved
		result.FinishedAt = o.clock.Now()
		result.Summary = "build and tests already pass; nothing to fix"
		return result, nil
	}

	analysis := o.classifier.Analyze(output, o.runner.Tool(), fixCtx.RepoPath)
	issuesByCategory, err := o.detect(ctx, output, fixCtx.RepoPath)
	if err != nil {
		return nil, err
	}
	for _, h := range o.registry.All() {
		result.Issues = append(result.Issues, issuesByCategory[h.Category()]...)
	}
	// Classifier-only categories are carried for reporting; no handler owns
	// them, so they produce no fixes.
	for _, issue := range analysis.Issues {
		if _, owned := o.registry.Handler(issue.Category); !owned {
			result.Issues = append(result.Issues, issue)
		}
	}
	result.IssuesFound = len(result.Issues)

	if result.IssuesFound == 0 {
		result.State = schemas.StateBlocked
		result.BlockedReason = "build failed but no issue matched a known category"
		result.FinishedAt = o.clock.Now()
		result.Summary = o.summarize(result)
		return result, nil
	}

	// -- GENERATING --
	result.State = schemas.StateGenerating
	fixesByCategory := o.generate(ctx, issuesByCategory, change)
	for cat, fixes := range fixesByCategory {
		result.FixesByCategory[cat] = len(fixes)
	}

	// -- APPLYING --
	result.State = schemas.StateApplying
	snap, err := o.snapshotter.Take(fixCtx.RepoPath, result.RunID[:8])
	if err != nil {
		if !IsNotRepository(err) {
			return nil, err
		}
		o.logger.Warn("Repository is not under git; revert on failure unavailable",
			zap.String("repo", fixCtx.RepoPath))
		snap = nil
	}

	for _, cat := range o.registry.ApplyOrder() {
		fixes := fixesByCategory[cat]
		if len(fixes) == 0 {
			continue
		}
		applied := o.applier.ApplyAll(fixes)
		for _, af := range applied {
			if !af.Applied {
				result.FailedFixes++
			}
		}
		result.AppliedFixes = append(result.AppliedFixes, applied...)
	}

	// -- VALIDATING --
	result.State = schemas.StateValidating
	report, err := o.validator.ValidateFixes(ctx, fixCtx)
	if err != nil {
		if snap != nil && o.cfg.Orchestrator.RevertOnFailure {
			if rerr := o.snapshotter.Revert(snap); rerr != nil {
				o.logger.Error("Revert after validation error failed", zap.Error(rerr))
			}
		}
		return nil, err
	}
	result.Validation = report

	if report.ShouldCreatePR {
		result.State = schemas.StateApproved
		if snap != nil && !o.cfg.Orchestrator.KeepSnapshotBranch {
			if derr := o.snapshotter.Drop(snap); derr != nil {
				o.logger.Warn("Failed to drop snapshot branch", zap.Error(derr))
			}
		}
	} else {
		result.State = schemas.StateBlocked
		result.BlockedReason = blockedReason(report)
		if snap != nil && o.cfg.Orchestrator.RevertOnFailure {
			if rerr := o.snapshotter.Revert(snap); rerr != nil {
				o.logger.Error("Revert after blocked validation failed", zap.Error(rerr))
				result.BlockedReason += "; revert failed: " + rerr.Error()
			}
		}
	}

	result.FinishedAt = o.clock.Now()
	result.Summary = o.summarize(result)
	o.logger.Info("Pipeline run finished",
		zap.String("run_id", result.RunID),
		zap.String("state", string(result.State)),
		zap.Int("issues", result.IssuesFound),
		zap.Int("failed_fixes", result.FailedFixes))
	return result, nil
}

// collectBuildOutput runs a clean compile and, when it passes, the test
// suite, returning the combined output. The second return is true when both
// pass and there is nothing to repair.
func (o *Orchestrator) collectBuildOutput(ctx context.Context) (string, bool, error) {
	buildRes, err := o.runner.Run(ctx, schemas.GoalClean, schemas.GoalCompile)
	if err != nil {
		return "", false, fmt.Errorf("detection build failed to launch: %w", err)
	}
	if !buildRes.Success {
		return buildRes.Output, false, nil
	}
	testRes, err := o.runner.Run(ctx, schemas.GoalTest)
	if err != nil {
		return "", false, fmt.Errorf("detection test run failed to launch: %w", err)
	}
	output := buildRes.Output + "\n" + testRes.Output
	return output, testRes.Success, nil
}

// detect fans handler detection out concurrently. Detection only reads the
// build output and the repository, so the handlers can run in parallel.
func (o *Orchestrator) detect(ctx context.Context, output, repoPath string) (map[schemas.Category][]schemas.Issue, error) {
	var mu sync.Mutex
	byCategory := make(map[schemas.Category][]schemas.Issue)

	g, _ := errgroup.WithContext(ctx)
	for _, h := range o.registry.All() {
		h := h
		g.Go(func() error {
			issues := h.Detect(output, repoPath)
			mu.Lock()
			byCategory[h.Category()] = issues
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return byCategory, nil
}

// generate produces one fix per issue, bounded per handler. Group handlers
// take the coordinated path instead: one generation call per file group.
func (o *Orchestrator) generate(ctx context.Context, issuesByCategory map[schemas.Category][]schemas.Issue, change *schemas.VersionChange) map[schemas.Category][]schemas.Fix {
	fixesByCategory := make(map[schemas.Category][]schemas.Fix)
	for _, h := range o.registry.All() {
		issues := issuesByCategory[h.Category()]

		if gh, ok := h.(handlers.GroupHandler); ok && len(gh.Groups()) > 0 {
			fixesByCategory[h.Category()] = gh.GenerateGroupFixes(ctx, change)
			continue
		}
		if len(issues) == 0 {
			continue
		}

		// Fixes land at their issue's index so order stays deterministic
		// regardless of completion order.
		fixes := make([]schemas.Fix, len(issues))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.cfg.Fixgen.MaxConcurrentPerHandler)
		for i, issue := range issues {
			i, issue := i, issue
			g.Go(func() error {
				fixes[i] = h.GenerateFix(gctx, issue, change)
				return nil
			})
		}
		_ = g.Wait()
		fixesByCategory[h.Category()] = fixes
	}
	return fixesByCategory
}

func blockedReason(report *schemas.ValidationReport) string {
	switch report.BlockedGate {
	case schemas.GateCompile:
		return "build failed after applying fixes"
	case schemas.GateTestRate:
		return fmt.Sprintf("test failure rate too high: %d of %d failed",
			report.TestResults.Failed, report.TestResults.Total)
	case schemas.GateDependencyFailure:
		return "test failures traced back to the dependency change"
	default:
		return "validation did not approve the change"
	}
}

// summarize renders the one-paragraph human summary carried on the result.
func (o *Orchestrator) summarize(result *schemas.OrchestrationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d issue(s) found", result.IssuesFound)
	if len(result.FixesByCategory) > 0 {
		var parts []string
		for _, cat := range o.registry.ApplyOrder() {
			if n := result.FixesByCategory[cat]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s: %d", cat, n))
			}
		}
		fmt.Fprintf(&b, "; fixes generated (%s)", strings.Join(parts, ", "))
	}
	if result.FailedFixes > 0 {
		fmt.Fprintf(&b, "; %d fix(es) failed to apply", result.FailedFixes)
	}
	switch result.State {
	case schemas.StateApproved:
		b.WriteString("; validation passed, ready for a pull request")
	case schemas.StateBlocked:
		fmt.Fprintf(&b, "; blocked: %s", result.BlockedReason)
	}
	return b.String()
}
