package handlers

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
)

// Deprecation shapes emitted by javac and the Maven compiler plugin.
var deprecatedRe = regexp.MustCompile(`(?i)(has been deprecated|uses or overrides a deprecated API|is deprecated)`)

// DeprecatedMethodHandler detects calls to methods the upgraded library has
// deprecated and rewrites the call sites.
type DeprecatedMethodHandler struct {
	baseHandler
}

// NewDeprecatedMethodHandler creates the handler.
func NewDeprecatedMethodHandler(logger *zap.Logger, gen schemas.FixGenerator, applier *Applier) *DeprecatedMethodHandler {
	return &DeprecatedMethodHandler{
		baseHandler: newBase(schemas.CategoryDeprecatedMethod, logger, gen, applier),
	}
}

// Detect implements Handler.
func (h *DeprecatedMethodHandler) Detect(output, repoPath string) []schemas.Issue {
	lines := strings.Split(output, "\n")
	var issues []schemas.Issue
	for i, line := range lines {
		if !deprecatedRe.MatchString(line) {
			continue
		}
		file, lineNo, msg := location(line)
		if msg == "" {
			msg = strings.TrimSpace(line)
		}
		issues = append(issues, schemas.Issue{
			Category:   schemas.CategoryDeprecatedMethod,
			File:       file,
			Line:       lineNo,
			Message:    msg,
			Context:    logContext(lines, i),
			Confidence: 0.75,
			Severity:   schemas.SeverityMedium,
			RawLogLine: line,
		})
	}
	h.logger.Debug("Deprecation detection complete", zap.Int("issues", len(issues)))
	return issues
}

// GenerateFix implements Handler.
func (h *DeprecatedMethodHandler) GenerateFix(ctx context.Context, issue schemas.Issue, change *schemas.VersionChange) schemas.Fix {
	return h.generateWithFallback(ctx, issue, change)
}
