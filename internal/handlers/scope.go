package handlers

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
)

// Scope problems surface as symbols that resolve at one build phase but not
// another: a class visible in the compiler output that vanishes at runtime
// (NoClassDefFoundError), or one the compiler cannot access because it moved
// behind a narrower scope.
var scopeRe = regexp.MustCompile(`(NoClassDefFoundError:?\s*[\w/.$]+|cannot access [\w.]+)`)

// DependencyScopeHandler detects scope misconfigurations and retargets the
// build manifest rather than source files.
type DependencyScopeHandler struct {
	baseHandler
}

// NewDependencyScopeHandler creates the handler.
func NewDependencyScopeHandler(logger *zap.Logger, gen schemas.FixGenerator, applier *Applier) *DependencyScopeHandler {
	return &DependencyScopeHandler{
		baseHandler: newBase(schemas.CategoryDependencyScope, logger, gen, applier),
	}
}

// Detect implements Handler. Issues point at the manifest's first <scope>
// element so the fallback chain can read and rewrite it; a manifest without
// one yields line zero and the fix degrades to a manual-review stub.
func (h *DependencyScopeHandler) Detect(output, repoPath string) []schemas.Issue {
	manifest := findManifest(repoPath)
	_, scopeLine := findScopeLine(manifest)
	lines := strings.Split(output, "\n")
	var issues []schemas.Issue
	for i, line := range lines {
		m := scopeRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		issues = append(issues, schemas.Issue{
			Category:   schemas.CategoryDependencyScope,
			File:       manifest,
			Line:       scopeLine,
			Message:    strings.TrimSpace(m[1]),
			Context:    logContext(lines, i),
			Confidence: 0.7,
			Severity:   schemas.SeverityHigh,
			RawLogLine: line,
		})
	}
	h.logger.Debug("Scope detection complete", zap.Int("issues", len(issues)))
	return issues
}

// GenerateFix implements Handler. The static fallback rewrites the manifest
// scope element, so the chain stays useful without the collaborator.
func (h *DependencyScopeHandler) GenerateFix(ctx context.Context, issue schemas.Issue, change *schemas.VersionChange) schemas.Fix {
	fix := h.generateWithFallback(ctx, issue, change)
	if fix.ManualReview && issue.File != "" {
		// The stub located no scope line to rewrite; point it at the first
		// scope element of the manifest if one exists.
		if line, n := findScopeLine(issue.File); n > 0 {
			fix.LineNumber = n
			fix.OldCode = line
			fix.NewCode = "<!-- FIXME(dependafix): manual review required: " + issue.Message + " -->\n" + line
		}
	}
	return fix
}

// findManifest returns the build manifest path for a repository.
func findManifest(repoPath string) string {
	for _, name := range []string{"pom.xml", "build.gradle", "build.gradle.kts"} {
		p := filepath.Join(repoPath, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(repoPath, "pom.xml")
}

// findScopeLine locates the first <scope> element in a manifest.
func findScopeLine(manifest string) (string, int) {
	data, err := os.ReadFile(manifest)
	if err != nil {
		return "", 0
	}
	for i, line := range strings.Split(string(data), "\n") {
		if strings.Contains(line, "<scope>") {
			return line, i + 1
		}
	}
	return "", 0
}
