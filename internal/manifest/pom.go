package manifest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/etree"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
)

// Entry is one versioned element of a build manifest.
type Entry struct {
	ID      string
	Version string
	Kind    schemas.ElementKind
}

// ParsePOM extracts dependencies, plugins, the parent, and *.version
// properties from a pom.xml. Version references like ${jackson.version} are
// resolved against the properties block when possible.
func ParsePOM(data []byte) ([]Entry, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse pom.xml: %w", err)
	}
	project := doc.SelectElement("project")
	if project == nil {
		return nil, fmt.Errorf("pom.xml has no <project> root")
	}

	properties := make(map[string]string)
	if props := project.SelectElement("properties"); props != nil {
		for _, child := range props.ChildElements() {
			properties[child.Tag] = strings.TrimSpace(child.Text())
		}
	}

	var entries []Entry

	if parent := project.SelectElement("parent"); parent != nil {
		entries = append(entries, Entry{
			ID:      coordinate(parent),
			Version: resolve(childText(parent, "version"), properties),
			Kind:    schemas.ElementParent,
		})
	}

	if deps := project.SelectElement("dependencies"); deps != nil {
		for _, dep := range deps.SelectElements("dependency") {
			entries = append(entries, Entry{
				ID:      coordinate(dep),
				Version: resolve(childText(dep, "version"), properties),
				Kind:    schemas.ElementDependency,
			})
		}
	}

	if build := project.SelectElement("build"); build != nil {
		if plugins := build.SelectElement("plugins"); plugins != nil {
			for _, plugin := range plugins.SelectElements("plugin") {
				entries = append(entries, Entry{
					ID:      coordinate(plugin),
					Version: resolve(childText(plugin, "version"), properties),
					Kind:    schemas.ElementPlugin,
				})
			}
		}
	}

	// Sorted so the emitted entry list is stable across runs.
	var propNames []string
	for name := range properties {
		if strings.HasSuffix(name, ".version") {
			propNames = append(propNames, name)
		}
	}
	sort.Strings(propNames)
	for _, name := range propNames {
		entries = append(entries, Entry{
			ID:      strings.TrimSuffix(name, ".version"),
			Version: properties[name],
			Kind:    schemas.ElementProperty,
		})
	}

	return entries, nil
}

func coordinate(el *etree.Element) string {
	group := childText(el, "groupId")
	artifact := childText(el, "artifactId")
	if group == "" {
		return artifact
	}
	return group + ":" + artifact
}

func childText(el *etree.Element, tag string) string {
	if child := el.SelectElement(tag); child != nil {
		return strings.TrimSpace(child.Text())
	}
	return ""
}

// resolve substitutes a ${property} version reference. Unresolvable
// references are returned as written so the diff still sees a change when the
// reference itself changes.
func resolve(version string, properties map[string]string) string {
	if strings.HasPrefix(version, "${") && strings.HasSuffix(version, "}") {
		name := version[2 : len(version)-1]
		if value, ok := properties[name]; ok {
			return value
		}
	}
	return version
}
