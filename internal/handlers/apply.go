package handlers

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
)

// Applier rewrites files from an in-memory line array. Two concurrent writers
// to one file would corrupt state, so callers must group fixes by target file
// and apply each file's list sequentially; ApplyAll enforces that discipline
// and additionally sorts each file's fixes by descending line number so
// earlier edits never shift the line numbers of later ones.
type Applier struct {
	logger *zap.Logger
}

// NewApplier creates a fix applier.
func NewApplier(logger *zap.Logger) *Applier {
	return &Applier{logger: logger.Named("applier")}
}

// ApplyFix writes one fix to its target file.
func (a *Applier) ApplyFix(fix schemas.Fix) error {
	if fix.TargetFile == "" {
		return fmt.Errorf("fix %s has no target file", fix.ID)
	}

	data, err := os.ReadFile(fix.TargetFile)
	if err != nil {
		return fmt.Errorf("failed to read target file %s: %w", fix.TargetFile, err)
	}
	lines := strings.Split(string(data), "\n")

	idx, err := a.targetIndex(lines, fix)
	if err != nil {
		return err
	}

	replacement := strings.Split(fix.NewCode, "\n")
	span := 1
	if len(fix.LineRanges) > 0 {
		r := fix.LineRanges[0]
		if r.End >= r.Start {
			span = r.End - r.Start + 1
		}
	}
	if idx+span > len(lines) {
		span = len(lines) - idx
	}

	updated := make([]string, 0, len(lines)-span+len(replacement))
	updated = append(updated, lines[:idx]...)
	updated = append(updated, replacement...)
	updated = append(updated, lines[idx+span:]...)

	updated = a.adjustImports(updated, fix)

	if err := os.WriteFile(fix.TargetFile, []byte(strings.Join(updated, "\n")), 0o644); err != nil {
		return fmt.Errorf("failed to write target file %s: %w", fix.TargetFile, err)
	}

	a.logger.Debug("Fix applied",
		zap.String("fix_id", fix.ID),
		zap.String("category", string(fix.Category)),
		zap.String("file", fix.TargetFile),
		zap.Int("line", idx+1),
	)
	return nil
}

// targetIndex locates the zero-based line index to edit: the stated line
// number when it still holds the old code, otherwise the first line
// containing the old code (edits applied earlier in the same file may have
// shifted it).
func (a *Applier) targetIndex(lines []string, fix schemas.Fix) (int, error) {
	oldFirst := strings.TrimSpace(firstLine(fix.OldCode))

	if fix.LineNumber >= 1 && fix.LineNumber <= len(lines) {
		idx := fix.LineNumber - 1
		if oldFirst == "" || strings.Contains(lines[idx], oldFirst) {
			return idx, nil
		}
	}
	if oldFirst != "" {
		for i, l := range lines {
			if strings.Contains(l, oldFirst) {
				return i, nil
			}
		}
		return 0, fmt.Errorf("old code %q not found in %s", oldFirst, fix.TargetFile)
	}
	if fix.LineNumber >= 1 && fix.LineNumber <= len(lines) {
		return fix.LineNumber - 1, nil
	}
	return 0, fmt.Errorf("no usable location for fix %s in %s", fix.ID, fix.TargetFile)
}

// adjustImports inserts the additional import statements after the last
// existing import (or the package declaration) and drops removed ones.
func (a *Applier) adjustImports(lines []string, fix schemas.Fix) []string {
	if len(fix.RemovedImports) > 0 {
		kept := lines[:0]
		for _, l := range lines {
			drop := false
			trimmed := strings.TrimSpace(l)
			if strings.HasPrefix(trimmed, "import ") {
				for _, imp := range fix.RemovedImports {
					if strings.Contains(trimmed, imp) {
						drop = true
						break
					}
				}
			}
			if !drop {
				kept = append(kept, l)
			}
		}
		lines = kept
	}

	if len(fix.AdditionalImports) == 0 {
		return lines
	}

	insertAt := 0
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, "package ") || strings.HasPrefix(trimmed, "import ") {
			insertAt = i + 1
		}
	}

	var imports []string
	for _, imp := range fix.AdditionalImports {
		stmt := "import " + imp + ";"
		if !containsLine(lines, stmt) {
			imports = append(imports, stmt)
		}
	}
	if len(imports) == 0 {
		return lines
	}

	out := make([]string, 0, len(lines)+len(imports))
	out = append(out, lines[:insertAt]...)
	out = append(out, imports...)
	out = append(out, lines[insertAt:]...)
	return out
}

// ApplyAll applies a batch of fixes belonging to one category: grouped by
// target file, each file's fixes sorted by descending line number, applied
// sequentially. A failing fix is recorded and does not abort its siblings.
func (a *Applier) ApplyAll(fixes []schemas.Fix) []schemas.AppliedFix {
	byFile := make(map[string][]schemas.Fix)
	var fileOrder []string
	for _, f := range fixes {
		if _, seen := byFile[f.TargetFile]; !seen {
			fileOrder = append(fileOrder, f.TargetFile)
		}
		byFile[f.TargetFile] = append(byFile[f.TargetFile], f)
	}

	results := make([]schemas.AppliedFix, 0, len(fixes))
	for _, file := range fileOrder {
		group := byFile[file]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].LineNumber > group[j].LineNumber
		})
		for _, f := range group {
			applied := schemas.AppliedFix{Fix: f, Applied: true}
			if err := a.ApplyFix(f); err != nil {
				applied.Applied = false
				applied.Error = err.Error()
				a.logger.Warn("Fix application failed; continuing with siblings",
					zap.String("fix_id", f.ID),
					zap.String("file", f.TargetFile),
					zap.Error(err))
			}
			results = append(results, applied)
		}
	}
	return results
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func containsLine(lines []string, want string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) == want {
			return true
		}
	}
	return false
}
