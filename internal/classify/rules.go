package classify

import (
	"regexp"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
)

// rule is one tagged entry of the ordered classification table. Rules are
// evaluated once per log line, in table order; the first match wins for a
// line, so the order below is part of the classification contract.
type rule struct {
	category   schemas.Category
	re         *regexp.Regexp
	confidence float64
	severity   schemas.Severity
}

// rules is the ordered classification table. Compilation errors are matched
// first so a javac error line is never shadowed by a weaker category.
var rules = []rule{
	{
		category:   schemas.CategoryCompilationError,
		re:         regexp.MustCompile(`(?:^\[ERROR\]\s+.*\.java:\[\d+,\d+\]|^.*\.java:\d+:\s*error:|COMPILATION ERROR|BUILD FAILED)`),
		confidence: 0.9,
		severity:   schemas.SeverityCritical,
	},
	{
		category:   schemas.CategoryDependencyConflict,
		re:         regexp.MustCompile(`(?i)(dependency convergence error|conflicting versions|version conflict|Could not resolve dependencies|Failed to collect dependencies)`),
		confidence: 0.85,
		severity:   schemas.SeverityHigh,
	},
	{
		category:   schemas.CategoryAPIIncompatibility,
		re:         regexp.MustCompile(`(cannot be applied to given types|incompatible types:|actual and formal argument lists differ|is not compatible with)`),
		confidence: 0.8,
		severity:   schemas.SeverityHigh,
	},
	{
		category:   schemas.CategoryClassNotFound,
		re:         regexp.MustCompile(`(ClassNotFoundException:\s*[\w.$]+|NoClassDefFoundError:?\s*[\w/.$]+|symbol:\s+class\s+\w+)`),
		confidence: 0.85,
		severity:   schemas.SeverityHigh,
	},
	{
		category:   schemas.CategoryMethodNotFound,
		re:         regexp.MustCompile(`(NoSuchMethodError:?\s*[\w.$]+|symbol:\s+method\s+\w+|method does not exist)`),
		confidence: 0.8,
		severity:   schemas.SeverityHigh,
	},
	{
		category:   schemas.CategoryPackageNotFound,
		re:         regexp.MustCompile(`package\s+[\w.]+\s+does not exist`),
		confidence: 0.8,
		severity:   schemas.SeverityMedium,
	},
}

// priority is the fixed ordering table for classified issues: lower comes
// first. Compilation errors lead, package-not-found trails. This ordering
// decides which issues are shown and fixed first under constrained budgets.
var priority = map[schemas.Category]int{
	schemas.CategoryCompilationError:    0,
	schemas.CategoryDependencyConflict:  1,
	schemas.CategoryAPIIncompatibility:  2,
	schemas.CategoryClassNotFound:       3,
	schemas.CategoryMethodNotFound:      4,
	schemas.CategoryTypeIncompatibility: 5,
	schemas.CategoryDeprecatedMethod:    6,
	schemas.CategoryAPISignatureChange:  7,
	schemas.CategoryDependencyScope:     8,
	schemas.CategoryRemovedClass:        9,
	schemas.CategoryMultiFileChange:     10,
	schemas.CategoryPackageNotFound:     11,
}

// priorityOf returns a category's rank; unknown categories sort before
// package-not-found but after everything ranked.
func priorityOf(c schemas.Category) int {
	if p, ok := priority[c]; ok {
		return p
	}
	return len(priority) - 1
}

// Source-location patterns, per tool output shape.
var (
	// Maven: [ERROR] /path/to/File.java:[12,34] message
	mavenLocationRe = regexp.MustCompile(`\[ERROR\]\s+(\S+\.java):\[(\d+),\d+\]\s*(.*)`)
	// Gradle/javac: /path/to/File.java:12: error: message
	javacLocationRe = regexp.MustCompile(`(\S+\.java):(\d+):\s*(?:error|warning):\s*(.*)`)
)
