package manifest

import (
	"strconv"
	"strings"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
)

// preReleaseMarkers flag versions that are not stable releases.
var preReleaseMarkers = []string{"alpha", "beta", "rc", "snapshot", "milestone", "-m", ".m"}

// CompareVersions classifies the transition from old to new. Empty sides mean
// the dependency appeared or disappeared between the two revisions.
func CompareVersions(oldVersion, newVersion string) schemas.Significance {
	oldVersion = strings.TrimSpace(oldVersion)
	newVersion = strings.TrimSpace(newVersion)

	switch {
	case oldVersion == "" && newVersion != "":
		return schemas.SignificanceAddition
	case oldVersion != "" && newVersion == "":
		return schemas.SignificanceRemoval
	}

	if isPreRelease(newVersion) {
		return schemas.SignificancePreRelease
	}

	oldParts := numericSegments(oldVersion)
	newParts := numericSegments(newVersion)
	for i := 0; i < len(oldParts) || i < len(newParts); i++ {
		var o, n int
		if i < len(oldParts) {
			o = oldParts[i]
		}
		if i < len(newParts) {
			n = newParts[i]
		}
		if o == n {
			continue
		}
		switch i {
		case 0:
			return schemas.SignificanceMajor
		case 1:
			return schemas.SignificanceMinor
		default:
			return schemas.SignificancePatch
		}
	}
	return schemas.SignificancePatch
}

func isPreRelease(version string) bool {
	v := strings.ToLower(version)
	for _, marker := range preReleaseMarkers {
		if strings.Contains(v, marker) {
			return true
		}
	}
	return false
}

// numericSegments parses the leading numeric dot-segments of a version.
// Trailing qualifiers like "-jre" or ".Final" stop the parse.
func numericSegments(version string) []int {
	var segments []int
	for _, part := range strings.FieldsFunc(version, func(r rune) bool {
		return r == '.' || r == '-'
	}) {
		n, err := strconv.Atoi(part)
		if err != nil {
			break
		}
		segments = append(segments, n)
	}
	return segments
}
