package classify

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
)

// Analysis is the classifier output: the prioritized issue list plus the
// dependency coordinates parsed from dependency-list output, when present.
type Analysis struct {
	Issues         []schemas.Issue
	DependencyInfo map[string]string
}

// Classifier scans build/test output and extracts typed issues via the
// ordered rule table. Classification is a pure function of the log text, so
// running it twice on identical output yields an identical, order-stable
// issue list.
type Classifier struct {
	logger *zap.Logger
}

// NewClassifier creates a log classifier.
func NewClassifier(logger *zap.Logger) *Classifier {
	return &Classifier{logger: logger.Named("classifier")}
}

// contextRadius is the number of log lines captured around a match for
// downstream fix generation.
const contextRadius = 2

// Analyze applies the rule table line by line, deduplicates by
// (category, message, location), and sorts by the fixed priority table with
// confidence as the tiebreak.
func (c *Classifier) Analyze(output string, tool schemas.BuildToolKind, repoPath string) *Analysis {
	lines := strings.Split(output, "\n")

	var issues []schemas.Issue
	for i, line := range lines {
		for _, r := range rules {
			if !r.re.MatchString(line) {
				continue
			}
			file, lineNo, msg := extractLocation(line)
			if msg == "" {
				msg = strings.TrimSpace(line)
			}
			issues = append(issues, schemas.Issue{
				Category:   r.category,
				File:       file,
				Line:       lineNo,
				Message:    msg,
				Context:    snippet(lines, i),
				Confidence: r.confidence,
				Severity:   r.severity,
				RawLogLine: line,
			})
			// First matching rule wins for this line.
			break
		}
	}

	issues = dedupe(issues)
	sortIssues(issues)

	c.logger.Debug("Classification complete",
		zap.Int("issues", len(issues)),
		zap.String("tool", string(tool)),
	)

	return &Analysis{
		Issues:         issues,
		DependencyInfo: parseDependencyList(lines, tool),
	}
}

// extractLocation pulls a source file and line number out of a log line,
// recognizing both Maven and plain javac shapes.
func extractLocation(line string) (file string, lineNo int, msg string) {
	if m := mavenLocationRe.FindStringSubmatch(line); m != nil {
		n, _ := strconv.Atoi(m[2])
		return m[1], n, strings.TrimSpace(m[3])
	}
	if m := javacLocationRe.FindStringSubmatch(line); m != nil {
		n, _ := strconv.Atoi(m[2])
		return m[1], n, strings.TrimSpace(m[3])
	}
	return "", 0, ""
}

// snippet captures contextRadius lines before and after index i.
func snippet(lines []string, i int) string {
	lo := i - contextRadius
	if lo < 0 {
		lo = 0
	}
	hi := i + contextRadius + 1
	if hi > len(lines) {
		hi = len(lines)
	}
	return strings.Join(lines[lo:hi], "\n")
}

// dedupe removes issues with an identical (category, message, location) key,
// keeping the first occurrence.
func dedupe(issues []schemas.Issue) []schemas.Issue {
	seen := make(map[string]struct{}, len(issues))
	out := issues[:0]
	for _, is := range issues {
		key := is.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, is)
	}
	return out
}

// sortIssues orders by the fixed priority table, then by confidence
// descending. The sort is stable so equal issues keep their log order.
func sortIssues(issues []schemas.Issue) {
	sort.SliceStable(issues, func(a, b int) bool {
		pa, pb := priorityOf(issues[a].Category), priorityOf(issues[b].Category)
		if pa != pb {
			return pa < pb
		}
		return issues[a].Confidence > issues[b].Confidence
	})
}

// Dependency coordinate shapes emitted by `mvn dependency:list` and
// `gradle dependencies`.
var (
	mavenDepRe  = regexp.MustCompile(`\[INFO\]\s+([\w.\-]+):([\w.\-]+):jar:([\w.\-]+):(\w+)`)
	gradleDepRe = regexp.MustCompile(`[+\\]---\s+([\w.\-]+):([\w.\-]+):([\w.\-]+)`)
)

// parseDependencyList extracts groupId:artifactId -> version pairs from
// dependency-list output embedded in the log.
func parseDependencyList(lines []string, tool schemas.BuildToolKind) map[string]string {
	deps := make(map[string]string)
	for _, line := range lines {
		switch tool {
		case schemas.BuildToolGradle:
			if m := gradleDepRe.FindStringSubmatch(line); m != nil {
				deps[m[1]+":"+m[2]] = m[3]
			}
		default:
			if m := mavenDepRe.FindStringSubmatch(line); m != nil {
				deps[m[1]+":"+m[2]] = m[3]
			}
		}
	}
	return deps
}
