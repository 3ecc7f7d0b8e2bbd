package handlers

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
)

// Signature-mismatch shapes: a method exists but the arguments or types no
// longer line up after the upgrade.
var signatureRe = regexp.MustCompile(`(cannot be applied to given types|incompatible types:.*cannot be converted|actual and formal argument lists differ)`)

// APISignatureChangeHandler detects call sites broken by changed method
// signatures and adapts the arguments.
type APISignatureChangeHandler struct {
	baseHandler
}

// NewAPISignatureChangeHandler creates the handler.
func NewAPISignatureChangeHandler(logger *zap.Logger, gen schemas.FixGenerator, applier *Applier) *APISignatureChangeHandler {
	return &APISignatureChangeHandler{
		baseHandler: newBase(schemas.CategoryAPISignatureChange, logger, gen, applier),
	}
}

// Detect implements Handler.
func (h *APISignatureChangeHandler) Detect(output, repoPath string) []schemas.Issue {
	lines := strings.Split(output, "\n")
	var issues []schemas.Issue
	for i, line := range lines {
		if !signatureRe.MatchString(line) {
			continue
		}
		file, lineNo, msg := location(line)
		if file == "" {
			// javac often prints the location a line or two above the
			// "cannot be applied" detail; look back for it.
			for j := i - 1; j >= 0 && j >= i-2; j-- {
				if f, n, m := location(lines[j]); f != "" {
					file, lineNo = f, n
					if msg == "" {
						msg = m
					}
					break
				}
			}
		}
		if msg == "" {
			msg = strings.TrimSpace(line)
		}
		issues = append(issues, schemas.Issue{
			Category:   schemas.CategoryAPISignatureChange,
			File:       file,
			Line:       lineNo,
			Message:    msg,
			Context:    logContext(lines, i),
			Confidence: 0.8,
			Severity:   schemas.SeverityHigh,
			RawLogLine: line,
		})
	}
	h.logger.Debug("Signature-change detection complete", zap.Int("issues", len(issues)))
	return issues
}

// GenerateFix implements Handler.
func (h *APISignatureChangeHandler) GenerateFix(ctx context.Context, issue schemas.Issue, change *schemas.VersionChange) schemas.Fix {
	return h.generateWithFallback(ctx, issue, change)
}
