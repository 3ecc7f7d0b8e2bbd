package handlers

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
	"github.com/EnockMagara/dependafix-sub000/internal/fixgen"
)

// Symbols implicated by the build failure: missing classes and methods named
// in compiler or runtime errors.
var symbolRe = regexp.MustCompile(`(?:symbol:\s+(?:class|method)\s+(\w+)|ClassNotFoundException:\s*(?:[\w.$]*\.)?(\w+)|NoSuchMethodError:\s*(?:[\w.$]*\.)?(\w+))`)

// maxScannedFiles caps the repository walk so a pathological checkout cannot
// stall detection.
const maxScannedFiles = 2000

// MultiFileChangeHandler groups source files that reference the same broken
// symbols and requests one coordinated fix per group, so changes like a
// parameter-count update land on caller and callee together.
type MultiFileChangeHandler struct {
	baseHandler

	mu     sync.Mutex
	groups []schemas.FileGroup
}

// NewMultiFileChangeHandler creates the handler.
func NewMultiFileChangeHandler(logger *zap.Logger, gen schemas.FixGenerator, applier *Applier) *MultiFileChangeHandler {
	return &MultiFileChangeHandler{
		baseHandler: newBase(schemas.CategoryMultiFileChange, logger, gen, applier),
	}
}

// Detect implements Handler. Beyond per-line matching it scans the source
// tree for files sharing the affected symbols and records them as groups for
// GenerateGroupFixes.
func (h *MultiFileChangeHandler) Detect(output, repoPath string) []schemas.Issue {
	symbols := affectedSymbols(output)
	if len(symbols) == 0 {
		h.setGroups(nil)
		return nil
	}

	occurrences := h.scanRepository(repoPath, symbols)

	var groups []schemas.FileGroup
	var issues []schemas.Issue
	for _, sym := range symbols {
		files := occurrences[sym]
		if len(files) < 2 {
			continue
		}
		sort.Strings(files)
		groups = append(groups, schemas.FileGroup{
			Files:            files,
			RelationshipKind: "shared_symbol",
			AffectedSymbols:  []string{sym},
		})
		issues = append(issues, schemas.Issue{
			Category:   schemas.CategoryMultiFileChange,
			File:       files[0],
			Message:    "symbol " + sym + " referenced across " + strings.Join(files, ", "),
			Confidence: 0.7,
			Severity:   schemas.SeverityHigh,
			RawLogLine: "symbol: " + sym,
		})
	}
	h.setGroups(groups)
	h.logger.Debug("Multi-file detection complete",
		zap.Int("symbols", len(symbols)),
		zap.Int("groups", len(groups)))
	return issues
}

// Groups implements GroupHandler.
func (h *MultiFileChangeHandler) Groups() []schemas.FileGroup {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]schemas.FileGroup, len(h.groups))
	copy(out, h.groups)
	return out
}

func (h *MultiFileChangeHandler) setGroups(groups []schemas.FileGroup) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.groups = groups
}

// GenerateGroupFixes implements GroupHandler: one collaborator call per
// group, expanded into per-file fixes marked as coordinated with each other.
// A failing call degrades to a manual-review stub per file, never to nothing.
func (h *MultiFileChangeHandler) GenerateGroupFixes(ctx context.Context, change *schemas.VersionChange) []schemas.Fix {
	var fixes []schemas.Fix
	for _, group := range h.Groups() {
		req := schemas.GenerationRequest{
			Category:      schemas.CategoryMultiFileChange,
			Files:         group.Files,
			SourceContext: groupContext(group),
		}
		if change != nil {
			req.LibraryName = change.DependencyID
			req.OldVersion = change.OldVersion
			req.NewVersion = change.NewVersion
		}

		resp, err := h.gen.GenerateGroupFix(ctx, req)
		if err == nil && resp != nil && resp.Success && len(resp.Files) > 0 {
			for _, ff := range resp.Files {
				fixes = append(fixes, schemas.Fix{
					ID:                uuid.NewString(),
					Category:          schemas.CategoryMultiFileChange,
					TargetFile:        ff.File,
					LineNumber:        ff.TargetLine,
					OldCode:           ff.OldCode,
					NewCode:           ff.ReplacementCode,
					AdditionalImports: ff.AdditionalImports,
					Explanation:       resp.Explanation,
					Confidence:        clampConfidence(resp.Confidence),
					CoordinatedWith:   others(group.Files, ff.File),
				})
			}
			continue
		}
		if err != nil {
			h.logger.Warn("Group fix generation failed, stubbing group for manual review",
				zap.Strings("files", group.Files),
				zap.Error(err))
		}
		for _, file := range group.Files {
			fixes = append(fixes, schemas.Fix{
				ID:              uuid.NewString(),
				Category:        schemas.CategoryMultiFileChange,
				TargetFile:      file,
				LineNumber:      1,
				NewCode:         "// FIXME(dependafix): manual review required: coordinated change for " + strings.Join(group.AffectedSymbols, ", "),
				Explanation:     "No automated coordinated fix available; flagged for manual review.",
				Confidence:      fixgen.ManualReviewConfidence,
				CoordinatedWith: others(group.Files, file),
				ManualReview:    true,
			})
		}
	}
	return fixes
}

// GenerateFix implements Handler for stray single-file issues of this
// category.
func (h *MultiFileChangeHandler) GenerateFix(ctx context.Context, issue schemas.Issue, change *schemas.VersionChange) schemas.Fix {
	return h.generateWithFallback(ctx, issue, change)
}

// affectedSymbols extracts the distinct symbol names implicated by the build
// output, in first-seen order.
func affectedSymbols(output string) []string {
	seen := make(map[string]struct{})
	var symbols []string
	for _, m := range symbolRe.FindAllStringSubmatch(output, -1) {
		sym := m[1]
		if sym == "" {
			sym = m[2]
		}
		if sym == "" {
			sym = m[3]
		}
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		symbols = append(symbols, sym)
	}
	return symbols
}

// scanRepository walks the source tree recording which files mention each
// symbol. Word-boundary matching keeps "Parser" from matching "ParserUtil".
func (h *MultiFileChangeHandler) scanRepository(repoPath string, symbols []string) map[string][]string {
	matchers := make(map[string]*regexp.Regexp, len(symbols))
	for _, sym := range symbols {
		matchers[sym] = regexp.MustCompile(`\b` + regexp.QuoteMeta(sym) + `\b`)
	}

	occurrences := make(map[string][]string)
	scanned := 0
	_ = filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", "target", "build", "node_modules":
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".java") {
			return nil
		}
		if scanned >= maxScannedFiles {
			return filepath.SkipAll
		}
		scanned++

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		content := string(data)
		for sym, re := range matchers {
			if re.MatchString(content) {
				occurrences[sym] = append(occurrences[sym], path)
			}
		}
		return nil
	})
	return occurrences
}

// groupContext summarizes a group for the generation request: each file with
// the lines mentioning its affected symbols.
func groupContext(group schemas.FileGroup) string {
	var b strings.Builder
	b.WriteString("affected symbols: " + strings.Join(group.AffectedSymbols, ", ") + "\n")
	for _, file := range group.Files {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		b.WriteString("--- " + file + " ---\n")
		for i, line := range strings.Split(string(data), "\n") {
			for _, sym := range group.AffectedSymbols {
				if strings.Contains(line, sym) {
					b.WriteString(strings.TrimSpace(line))
					b.WriteString("  // line ")
					b.WriteString(strconv.Itoa(i + 1))
					b.WriteString("\n")
					break
				}
			}
		}
	}
	return b.String()
}

func others(files []string, self string) []string {
	var out []string
	for _, f := range files {
		if f != self {
			out = append(out, f)
		}
	}
	return out
}

