package handlers

import (
	"context"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
	"github.com/EnockMagara/dependafix-sub000/internal/fixgen"
)

// Source-location shapes shared by the detectors. Maven prefixes error lines
// with [ERROR]/[WARNING]; plain javac emits file:line directly.
var (
	mavenLocRe = regexp.MustCompile(`\[(?:ERROR|WARNING)\]\s+(\S+\.java):\[(\d+),\d+\]\s*(.*)`)
	javacLocRe = regexp.MustCompile(`(\S+\.java):(\d+):\s*(?:error|warning):\s*(.*)`)
)

// location extracts file, line and trailing message from a log line.
func location(line string) (string, int, string) {
	if m := mavenLocRe.FindStringSubmatch(line); m != nil {
		n, _ := strconv.Atoi(m[2])
		return m[1], n, strings.TrimSpace(m[3])
	}
	if m := javacLocRe.FindStringSubmatch(line); m != nil {
		n, _ := strconv.Atoi(m[2])
		return m[1], n, strings.TrimSpace(m[3])
	}
	return "", 0, ""
}

// logContext captures two lines around index i of the split output.
func logContext(lines []string, i int) string {
	lo := i - 2
	if lo < 0 {
		lo = 0
	}
	hi := i + 3
	if hi > len(lines) {
		hi = len(lines)
	}
	return strings.Join(lines[lo:hi], "\n")
}

// baseHandler carries the pieces every category handler shares: the
// generation collaborator, the applier, and the fallback chain.
type baseHandler struct {
	category schemas.Category
	logger   *zap.Logger
	gen      schemas.FixGenerator
	applier  *Applier
}

func newBase(category schemas.Category, logger *zap.Logger, gen schemas.FixGenerator, applier *Applier) baseHandler {
	return baseHandler{
		category: category,
		logger:   logger.Named("handler." + string(category)),
		gen:      gen,
		applier:  applier,
	}
}

// Category implements Handler.
func (b *baseHandler) Category() schemas.Category { return b.category }

// Apply implements Handler.
func (b *baseHandler) Apply(fix schemas.Fix) error {
	return b.applier.ApplyFix(fix)
}

// sourceLine reads line n (1-based) of a file in the working tree. Missing
// files or out-of-range lines return the empty string. Detection records file
// paths exactly as the build tool printed them, so no resolution happens here.
func sourceLine(file string, n int) string {
	data, err := os.ReadFile(file)
	if err != nil {
		return ""
	}
	lines := strings.Split(string(data), "\n")
	if n < 1 || n > len(lines) {
		return ""
	}
	return lines[n-1]
}

// generateWithFallback runs the three-step fix chain: collaborator call,
// static substitution table, manual-review stub. It always returns a fix, so
// the fix count equals the issue count even when the collaborator is down.
func (b *baseHandler) generateWithFallback(ctx context.Context, issue schemas.Issue, change *schemas.VersionChange) schemas.Fix {
	req := buildRequest(b.category, issue, change)
	original := sourceLine(issue.File, issue.Line)
	if original != "" {
		req.SourceContext = req.SourceContext + "\n--- source ---\n" + original
	}

	resp, err := b.gen.GenerateFix(ctx, req)
	if err == nil && resp != nil && resp.Success && resp.ReplacementCode != "" {
		return schemas.Fix{
			ID:                uuid.NewString(),
			Category:          b.category,
			TargetFile:        issue.File,
			LineNumber:        issue.Line,
			OldCode:           original,
			NewCode:           resp.ReplacementCode,
			AdditionalImports: resp.AdditionalImports,
			RemovedImports:    resp.RemovedImports,
			Explanation:       resp.Explanation,
			Confidence:        clampConfidence(resp.Confidence),
		}
	}
	if err != nil {
		b.logger.Warn("Fix generation collaborator failed, using static fallback",
			zap.String("file", issue.File),
			zap.Error(err))
	}

	if sub, ok := fixgen.Lookup(b.category, original); ok && original != "" {
		conf := sub.Confidence
		if conf > fixgen.FallbackConfidenceCap {
			conf = fixgen.FallbackConfidenceCap
		}
		return schemas.Fix{
			ID:                uuid.NewString(),
			Category:          b.category,
			TargetFile:        issue.File,
			LineNumber:        issue.Line,
			OldCode:           original,
			NewCode:           fixgen.ApplySubstitution(sub, original),
			AdditionalImports: sub.AdditionalImports,
			Explanation:       sub.Explanation,
			Confidence:        conf,
		}
	}

	return b.manualReviewStub(issue, original)
}

// manualReviewStub yields an inert marker fix so the issue still produces a
// row in the result instead of silently disappearing.
func (b *baseHandler) manualReviewStub(issue schemas.Issue, original string) schemas.Fix {
	marker := "// FIXME(dependafix): manual review required: " + issue.Message
	newCode := marker
	if original != "" {
		newCode = marker + "\n" + original
	}
	return schemas.Fix{
		ID:           uuid.NewString(),
		Category:     b.category,
		TargetFile:   issue.File,
		LineNumber:   issue.Line,
		OldCode:      original,
		NewCode:      newCode,
		Explanation:  "No automated fix available; flagged for manual review.",
		Confidence:   fixgen.ManualReviewConfidence,
		ManualReview: true,
	}
}

// buildRequest assembles the collaborator request from the issue and the
// triggering version change.
func buildRequest(category schemas.Category, issue schemas.Issue, change *schemas.VersionChange) schemas.GenerationRequest {
	req := schemas.GenerationRequest{
		Category:      category,
		SourceContext: issue.Context,
		TargetFile:    issue.File,
		TargetLine:    issue.Line,
	}
	if change != nil {
		req.LibraryName = change.DependencyID
		req.OldVersion = change.OldVersion
		req.NewVersion = change.NewVersion
	}
	return req
}

func clampConfidence(c float64) float64 {
	if c <= 0 {
		return 0.01
	}
	if c > 1 {
		return 1.0
	}
	return c
}
