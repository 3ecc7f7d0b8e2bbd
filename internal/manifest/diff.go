package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
)

// manifestNames are the recognized build manifests, in preference order.
var manifestNames = []string{"pom.xml", "build.gradle", "build.gradle.kts"}

// Differ extracts the dependency version changes between two revisions of a
// repository's build manifest.
type Differ struct {
	logger *zap.Logger
}

// NewDiffer creates a differ.
func NewDiffer(logger *zap.Logger) *Differ {
	return &Differ{logger: logger.Named("manifest")}
}

// Changes diffs the manifest between baseRev and headRev. An empty headRev
// means the working tree, which is the usual case: the bot inspects an
// uncommitted dependency bump.
func (d *Differ) Changes(repoPath, baseRev, headRev string) ([]schemas.VersionChange, error) {
	name, err := findManifestName(repoPath)
	if err != nil {
		return nil, err
	}

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %s: %w", repoPath, err)
	}

	oldData, err := contentAt(repo, baseRev, name)
	if err != nil {
		return nil, err
	}

	var newData []byte
	if headRev == "" {
		newData, err = os.ReadFile(filepath.Join(repoPath, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read working tree manifest: %w", err)
		}
	} else {
		newData, err = contentAt(repo, headRev, name)
		if err != nil {
			return nil, err
		}
	}

	var oldEntries []Entry
	if len(oldData) > 0 {
		// A manifest absent at the base revision means everything is new.
		oldEntries, err = parseManifest(name, oldData)
		if err != nil {
			return nil, err
		}
	}
	newEntries, err := parseManifest(name, newData)
	if err != nil {
		return nil, err
	}

	changes := DiffEntries(oldEntries, newEntries)
	d.logger.Info("Manifest diff complete",
		zap.String("manifest", name),
		zap.String("base", baseRev),
		zap.Int("changes", len(changes)))
	return changes, nil
}

// DiffEntries compares two parsed manifests and emits one change per entry
// whose version differs, plus additions and removals.
func DiffEntries(oldEntries, newEntries []Entry) []schemas.VersionChange {
	oldByID := make(map[string]Entry, len(oldEntries))
	for _, e := range oldEntries {
		oldByID[e.ID] = e
	}

	var changes []schemas.VersionChange
	seen := make(map[string]struct{}, len(newEntries))
	for _, e := range newEntries {
		seen[e.ID] = struct{}{}
		old, existed := oldByID[e.ID]
		switch {
		case !existed:
			changes = append(changes, schemas.VersionChange{
				DependencyID: e.ID,
				NewVersion:   e.Version,
				Significance: schemas.SignificanceAddition,
				ElementKind:  e.Kind,
			})
		case old.Version != e.Version:
			changes = append(changes, schemas.VersionChange{
				DependencyID: e.ID,
				OldVersion:   old.Version,
				NewVersion:   e.Version,
				Significance: CompareVersions(old.Version, e.Version),
				ElementKind:  e.Kind,
			})
		}
	}
	for _, e := range oldEntries {
		if _, still := seen[e.ID]; !still {
			changes = append(changes, schemas.VersionChange{
				DependencyID: e.ID,
				OldVersion:   e.Version,
				Significance: schemas.SignificanceRemoval,
				ElementKind:  e.Kind,
			})
		}
	}
	return changes
}

func parseManifest(name string, data []byte) ([]Entry, error) {
	if name == "pom.xml" {
		return ParsePOM(data)
	}
	return ParseGradle(data), nil
}

func findManifestName(repoPath string) (string, error) {
	for _, name := range manifestNames {
		if _, err := os.Stat(filepath.Join(repoPath, name)); err == nil {
			return name, nil
		}
	}
	return "", fmt.Errorf("no build manifest found in %s (looked for %s)",
		repoPath, strings.Join(manifestNames, ", "))
}

// contentAt reads a file from the tree of a resolved revision.
func contentAt(repo *git.Repository, rev, name string) ([]byte, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %q: %w", rev, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", hash, err)
	}
	file, err := commit.File(name)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s at %s: %w", name, rev, err)
	}
	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s at %s: %w", name, rev, err)
	}
	return []byte(content), nil
}
