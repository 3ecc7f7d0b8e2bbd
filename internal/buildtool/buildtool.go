package buildtool

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
)

// Tool describes one supported build-tool strategy. The two variants (Maven,
// Gradle) are registered in a lookup table and selected by the presence of
// their manifest files, so adding a third tool never touches the executor or
// the orchestrator.
type Tool interface {
	// Kind reports the tool identity.
	Kind() schemas.BuildToolKind
	// ManifestFiles lists the files whose presence selects this tool.
	ManifestFiles() []string
	// Invocation maps tool-agnostic goals to a concrete command line.
	Invocation(goals []schemas.Goal) (bin string, args []string)
}

// registry holds the known tools in detection order. Maven wins when both
// manifests are present, matching the original behavior.
var registry = []Tool{
	Maven{Binary: "mvn"},
	Gradle{Binary: "gradle"},
}

// Register appends a tool strategy to the detection table.
func Register(t Tool) {
	registry = append(registry, t)
}

// Detect selects the build tool for a repository by manifest-file presence.
func Detect(repoPath string) (Tool, error) {
	for _, t := range registry {
		for _, manifest := range t.ManifestFiles() {
			if _, err := os.Stat(filepath.Join(repoPath, manifest)); err == nil {
				return t, nil
			}
		}
	}
	return nil, fmt.Errorf("no supported build manifest found in %s", repoPath)
}

// ForKind returns the registered tool of the given kind.
func ForKind(kind schemas.BuildToolKind) (Tool, error) {
	for _, t := range registry {
		if t.Kind() == kind {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unsupported build tool %q", kind)
}

// Maven drives Apache Maven builds.
type Maven struct {
	// Binary is the mvn executable name or path.
	Binary string
}

// Kind implements Tool.
func (Maven) Kind() schemas.BuildToolKind { return schemas.BuildToolMaven }

// ManifestFiles implements Tool.
func (Maven) ManifestFiles() []string { return []string{"pom.xml"} }

// Invocation implements Tool. Maven takes all goals in a single invocation
// and -B keeps the output free of interactive escape sequences.
func (m Maven) Invocation(goals []schemas.Goal) (string, []string) {
	args := []string{"-B"}
	for _, g := range goals {
		switch g {
		case schemas.GoalClean:
			args = append(args, "clean")
		case schemas.GoalCompile:
			args = append(args, "compile")
		case schemas.GoalTest:
			args = append(args, "test")
		case schemas.GoalDependencyList:
			args = append(args, "dependency:list")
		}
	}
	return m.Binary, args
}

// Gradle drives Gradle builds.
type Gradle struct {
	Binary string
}

// Kind implements Tool.
func (Gradle) Kind() schemas.BuildToolKind { return schemas.BuildToolGradle }

// ManifestFiles implements Tool.
func (Gradle) ManifestFiles() []string {
	return []string{"build.gradle", "build.gradle.kts"}
}

// Invocation implements Tool.
func (g Gradle) Invocation(goals []schemas.Goal) (string, []string) {
	args := []string{"--console=plain"}
	for _, goal := range goals {
		switch goal {
		case schemas.GoalClean:
			args = append(args, "clean")
		case schemas.GoalCompile:
			args = append(args, "compileJava")
		case schemas.GoalTest:
			args = append(args, "test")
		case schemas.GoalDependencyList:
			args = append(args, "dependencies")
		}
	}
	return g.Binary, args
}
