package cmd

import (
	"github.com/spf13/cobra"

	"github.com/EnockMagara/dependafix-sub000/internal/observability"
	"github.com/EnockMagara/dependafix-sub000/internal/risk"
)

var assessFlags struct {
	repoPath   string
	baseRev    string
	library    string
	oldVersion string
	newVersion string
}

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Score the risk of a dependency update without running the fix pipeline.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()

		changes, err := collectChanges(logger, assessFlags.repoPath, assessFlags.baseRev,
			assessFlags.library, assessFlags.oldVersion, assessFlags.newVersion)
		if err != nil {
			return err
		}

		assessment := risk.New(logger, cfg.Risk).Assess(changes)
		return printJSON(assessment)
	},
}

func init() {
	assessCmd.Flags().StringVarP(&assessFlags.repoPath, "repo", "r", ".", "path to the repository")
	assessCmd.Flags().StringVar(&assessFlags.baseRev, "base-rev", "", "revision to diff the manifest against (e.g. HEAD~1)")
	assessCmd.Flags().StringVar(&assessFlags.library, "library", "", "updated dependency coordinate (group:artifact)")
	assessCmd.Flags().StringVar(&assessFlags.oldVersion, "old-version", "", "dependency version before the update")
	assessCmd.Flags().StringVar(&assessFlags.newVersion, "new-version", "", "dependency version after the update")
	rootCmd.AddCommand(assessCmd)
}
