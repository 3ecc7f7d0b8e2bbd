package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
	"github.com/EnockMagara/dependafix-sub000/internal/handlers"
	"github.com/EnockMagara/dependafix-sub000/internal/observability"
	"github.com/EnockMagara/dependafix-sub000/internal/orchestrator"
	"github.com/EnockMagara/dependafix-sub000/internal/risk"
	"github.com/EnockMagara/dependafix-sub000/internal/validator"
	"github.com/EnockMagara/dependafix-sub000/internal/vcshost"
)

var fixFlags struct {
	repoPath   string
	baseRev    string
	library    string
	oldVersion string
	newVersion string
	createPR   bool
	force      bool
}

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Detect, fix and validate build breakage caused by a dependency update.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()
		ctx := cmd.Context()

		changes, err := collectChanges(logger, fixFlags.repoPath, fixFlags.baseRev,
			fixFlags.library, fixFlags.oldVersion, fixFlags.newVersion)
		if err != nil {
			return err
		}

		assessor := risk.New(logger, cfg.Risk)
		assessment := assessor.Assess(changes)
		if !assessor.ShouldRunPipeline(assessment) && !fixFlags.force {
			logger.Info("Risk below configured minimum; skipping pipeline",
				zap.String("level", string(assessment.Level)),
				zap.String("min_level", cfg.Risk.MinLevelToRun))
			return printJSON(assessment)
		}

		runner, err := newRunner(logger, fixFlags.repoPath)
		if err != nil {
			return err
		}
		gen, err := newGenerator(logger)
		if err != nil {
			return err
		}

		fixCtx := schemas.FixContext{
			RepoPath:  fixFlags.repoPath,
			BuildTool: runner.Tool(),
		}
		var change *schemas.VersionChange
		if len(changes) > 0 {
			// The first change is the triggering update; the rest inform risk.
			change = &changes[0]
			fixCtx.Library = change.DependencyID
			fixCtx.OldVersion = change.OldVersion
			fixCtx.NewVersion = change.NewVersion
		}
		for _, c := range changes {
			if assessor.IsCritical(c) {
				fixCtx.IsCritical = true
				break
			}
		}

		registry := handlers.NewRegistry(logger, gen)
		v := validator.New(logger, runner)
		orch := orchestrator.New(logger, cfg, registry, runner, v)

		result, err := orch.Run(ctx, fixCtx, change)
		if err != nil {
			return err
		}

		if fixFlags.createPR && result.State == schemas.StateApproved {
			pr, err := openPullRequest(cmd, result, fixCtx)
			if err != nil {
				return fmt.Errorf("fixes approved but pull request creation failed: %w", err)
			}
			logger.Info("Pull request opened", zap.String("url", pr.URL))
		}

		return printJSON(result)
	},
}

// openPullRequest publishes an approved result: branch, commit, push, PR.
func openPullRequest(cmd *cobra.Command, result *schemas.OrchestrationResult, fixCtx schemas.FixContext) (*schemas.PullRequest, error) {
	logger := observability.GetLogger()
	host := vcshost.New(logger, cfg.Git, cfg.GitHub)

	branch := "dependafix/fix-" + result.RunID[:8]
	if err := host.CreateBranch(fixCtx.RepoPath, branch); err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Fix build for %s %s -> %s", fixCtx.Library, fixCtx.OldVersion, fixCtx.NewVersion)
	if fixCtx.Library == "" {
		title = "Fix build after dependency update"
	}
	if err := host.Commit(fixCtx.RepoPath, title); err != nil {
		return nil, err
	}
	if err := host.Push(cmd.Context(), fixCtx.RepoPath); err != nil {
		return nil, err
	}
	return host.CreatePullRequest(cmd.Context(), title, result.Summary, branch, cfg.GitHub.BaseBranch)
}

func init() {
	fixCmd.Flags().StringVarP(&fixFlags.repoPath, "repo", "r", ".", "path to the repository under repair")
	fixCmd.Flags().StringVar(&fixFlags.baseRev, "base-rev", "", "revision to diff the manifest against (e.g. HEAD~1)")
	fixCmd.Flags().StringVar(&fixFlags.library, "library", "", "updated dependency coordinate (group:artifact)")
	fixCmd.Flags().StringVar(&fixFlags.oldVersion, "old-version", "", "dependency version before the update")
	fixCmd.Flags().StringVar(&fixFlags.newVersion, "new-version", "", "dependency version after the update")
	fixCmd.Flags().BoolVar(&fixFlags.createPR, "create-pr", false, "open a pull request when validation approves")
	fixCmd.Flags().BoolVar(&fixFlags.force, "force", false, "run the pipeline even below the risk minimum")
	rootCmd.AddCommand(fixCmd)
}
