package manifest

import (
	"regexp"
	"strings"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
)

// Gradle scripts are code, not data, so a structural parse is out of reach.
// Coordinate literals in dependency declarations cover the overwhelming
// majority of version bumps in practice.
var (
	// implementation 'com.google.guava:guava:32.1.2-jre'
	gradleCoordRe = regexp.MustCompile(`['"]([\w.-]+):([\w.-]+):([\w.+-]+)['"]`)
	// id 'org.springframework.boot' version '3.2.0'
	gradlePluginRe = regexp.MustCompile(`id\s*\(?['"]([\w.-]+)['"]\)?\s+version\s+\(?['"]([\w.+-]+)['"]\)?`)
)

// ParseGradle extracts dependency coordinates and plugin versions from a
// build.gradle or build.gradle.kts script.
func ParseGradle(data []byte) []Entry {
	var entries []Entry
	seen := make(map[string]struct{})
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") {
			continue
		}
		if m := gradlePluginRe.FindStringSubmatch(trimmed); m != nil {
			id := m[1]
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				entries = append(entries, Entry{ID: id, Version: m[2], Kind: schemas.ElementPlugin})
			}
			continue
		}
		if m := gradleCoordRe.FindStringSubmatch(trimmed); m != nil {
			id := m[1] + ":" + m[2]
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				entries = append(entries, Entry{ID: id, Version: m[3], Kind: schemas.ElementDependency})
			}
		}
	}
	return entries
}
