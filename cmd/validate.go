package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
	"github.com/EnockMagara/dependafix-sub000/internal/observability"
	"github.com/EnockMagara/dependafix-sub000/internal/validator"
)

var validateFlags struct {
	repoPath string
	critical bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the build and test gate against the current working tree.",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()

		runner, err := newRunner(logger, validateFlags.repoPath)
		if err != nil {
			return err
		}

		report, err := validator.New(logger, runner).ValidateFixes(cmd.Context(), schemas.FixContext{
			RepoPath:   validateFlags.repoPath,
			BuildTool:  runner.Tool(),
			IsCritical: validateFlags.critical,
		})
		if err != nil {
			return err
		}
		if err := printJSON(report); err != nil {
			return err
		}
		if !report.ShouldCreatePR {
			return fmt.Errorf("validation blocked at the %s gate", report.BlockedGate)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateFlags.repoPath, "repo", "r", ".", "path to the repository")
	validateCmd.Flags().BoolVar(&validateFlags.critical, "critical", false, "apply the stricter critical-dependency threshold")
	rootCmd.AddCommand(validateCmd)
}
