package cmd

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
	"github.com/EnockMagara/dependafix-sub000/internal/buildtool"
	"github.com/EnockMagara/dependafix-sub000/internal/fixgen"
	"github.com/EnockMagara/dependafix-sub000/internal/manifest"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newRunner builds the configured build runner for a repository: explicit
// tool selection when configured, manifest detection otherwise.
func newRunner(logger *zap.Logger, repoPath string) (schemas.BuildRunner, error) {
	var (
		tool buildtool.Tool
		err  error
	)
	switch cfg.Build.Tool {
	case "auto":
		tool, err = buildtool.Detect(repoPath)
	default:
		tool, err = buildtool.ForKind(schemas.BuildToolKind(cfg.Build.Tool))
	}
	if err != nil {
		return nil, err
	}
	switch t := tool.(type) {
	case buildtool.Maven:
		t.Binary = cfg.Build.MavenBinary
		tool = t
	case buildtool.Gradle:
		t.Binary = cfg.Build.GradleBinary
		tool = t
	}

	exec := buildtool.NewExecutor(logger, cfg.Build.Timeout)
	return buildtool.NewRunner(exec, repoPath, tool), nil
}

// newGenerator builds the fix-generation collaborator, or the offline stand-in
// when no endpoint is configured.
func newGenerator(logger *zap.Logger) (schemas.FixGenerator, error) {
	if cfg.Fixgen.Endpoint == "" {
		logger.Warn("No fixgen endpoint configured; using static substitutions only")
		return fixgen.NewDisabled(), nil
	}
	return fixgen.NewClient(cfg.Fixgen, logger)
}

// collectChanges determines the version changes under repair: a manifest diff
// against baseRev when given, otherwise a single change from explicit flags.
func collectChanges(logger *zap.Logger, repoPath, baseRev, library, oldVersion, newVersion string) ([]schemas.VersionChange, error) {
	if baseRev != "" {
		return manifest.NewDiffer(logger).Changes(repoPath, baseRev, "")
	}
	if library == "" {
		return nil, fmt.Errorf("either --base-rev or --library with --old-version/--new-version is required")
	}
	return []schemas.VersionChange{{
		DependencyID: library,
		OldVersion:   oldVersion,
		NewVersion:   newVersion,
		Significance: manifest.CompareVersions(oldVersion, newVersion),
		ElementKind:  schemas.ElementDependency,
	}}, nil
}

// printJSON writes a result document to stdout.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
