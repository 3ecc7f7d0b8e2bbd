package handlers

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
)

// Removed-symbol shapes: classes or whole packages that existed in the old
// library version and are gone in the new one.
var (
	removedClassRe   = regexp.MustCompile(`(ClassNotFoundException:\s*([\w.$]+)|symbol:\s+class\s+(\w+))`)
	removedPackageRe = regexp.MustCompile(`package\s+([\w.]+)\s+does not exist`)
)

// RemovedClassHandler detects references to classes or packages removed by
// the upgrade and rewrites them to their replacements.
type RemovedClassHandler struct {
	baseHandler
}

// NewRemovedClassHandler creates the handler.
func NewRemovedClassHandler(logger *zap.Logger, gen schemas.FixGenerator, applier *Applier) *RemovedClassHandler {
	return &RemovedClassHandler{
		baseHandler: newBase(schemas.CategoryRemovedClass, logger, gen, applier),
	}
}

// Detect implements Handler.
func (h *RemovedClassHandler) Detect(output, repoPath string) []schemas.Issue {
	lines := strings.Split(output, "\n")
	var issues []schemas.Issue
	for i, line := range lines {
		var msg string
		switch {
		case removedPackageRe.MatchString(line):
			msg = "package " + removedPackageRe.FindStringSubmatch(line)[1] + " does not exist"
		case removedClassRe.MatchString(line):
			m := removedClassRe.FindStringSubmatch(line)
			symbol := m[2]
			if symbol == "" {
				symbol = m[3]
			}
			msg = "class " + symbol + " not found"
		default:
			continue
		}

		file, lineNo, _ := location(line)
		if file == "" {
			// The symbol detail usually follows the location line.
			for j := i - 1; j >= 0 && j >= i-3; j-- {
				if f, n, _ := location(lines[j]); f != "" {
					file, lineNo = f, n
					break
				}
			}
		}
		issues = append(issues, schemas.Issue{
			Category:   schemas.CategoryRemovedClass,
			File:       file,
			Line:       lineNo,
			Message:    msg,
			Context:    logContext(lines, i),
			Confidence: 0.85,
			Severity:   schemas.SeverityHigh,
			RawLogLine: line,
		})
	}
	h.logger.Debug("Removed-class detection complete", zap.Int("issues", len(issues)))
	return issues
}

// GenerateFix implements Handler.
func (h *RemovedClassHandler) GenerateFix(ctx context.Context, issue schemas.Issue, change *schemas.VersionChange) schemas.Fix {
	return h.generateWithFallback(ctx, issue, change)
}
