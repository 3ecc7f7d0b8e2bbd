package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name string
		old  string
		new  string
		want schemas.Significance
	}{
		{"major bump", "2.9.0", "3.0.0", schemas.SignificanceMajor},
		{"minor bump", "3.1.0", "3.2.0", schemas.SignificanceMinor},
		{"patch bump", "3.2.0", "3.2.1", schemas.SignificancePatch},
		{"deep patch bump", "1.2.3.4", "1.2.3.5", schemas.SignificancePatch},
		{"addition", "", "1.0.0", schemas.SignificanceAddition},
		{"removal", "1.0.0", "", schemas.SignificanceRemoval},
		{"pre-release rc", "2.0.0", "3.0.0-RC1", schemas.SignificancePreRelease},
		{"pre-release snapshot", "1.0", "1.1-SNAPSHOT", schemas.SignificancePreRelease},
		{"pre-release alpha", "1.0", "2.0.0.alpha2", schemas.SignificancePreRelease},
		{"identical versions", "1.2.3", "1.2.3", schemas.SignificancePatch},
		{"qualifier suffix ignored", "31.1-jre", "32.1-jre", schemas.SignificanceMajor},
		{"downgrade still classified by segment", "3.0.0", "2.9.0", schemas.SignificanceMajor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareVersions(tt.old, tt.new))
		})
	}
}

const samplePOM = `<?xml version="1.0" encoding="UTF-8"?>
<project>
  <parent>
    <groupId>org.springframework.boot</groupId>
    <artifactId>spring-boot-starter-parent</artifactId>
    <version>3.2.0</version>
  </parent>
  <groupId>com.acme</groupId>
  <artifactId>widget</artifactId>
  <version>1.0.0</version>
  <properties>
    <jackson.version>2.16.0</jackson.version>
    <maven.compiler.source>17</maven.compiler.source>
  </properties>
  <dependencies>
    <dependency>
      <groupId>com.fasterxml.jackson.core</groupId>
      <artifactId>jackson-databind</artifactId>
      <version>${jackson.version}</version>
    </dependency>
    <dependency>
      <groupId>com.google.guava</groupId>
      <artifactId>guava</artifactId>
      <version>32.1.2-jre</version>
    </dependency>
  </dependencies>
  <build>
    <plugins>
      <plugin>
        <groupId>org.apache.maven.plugins</groupId>
        <artifactId>maven-compiler-plugin</artifactId>
        <version>3.11.0</version>
      </plugin>
    </plugins>
  </build>
</project>`

func TestParsePOM(t *testing.T) {
	entries, err := ParsePOM([]byte(samplePOM))
	require.NoError(t, err)

	byID := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	parent := byID["org.springframework.boot:spring-boot-starter-parent"]
	assert.Equal(t, schemas.ElementParent, parent.Kind)
	assert.Equal(t, "3.2.0", parent.Version)

	jackson := byID["com.fasterxml.jackson.core:jackson-databind"]
	assert.Equal(t, schemas.ElementDependency, jackson.Kind)
	assert.Equal(t, "2.16.0", jackson.Version, "property reference must resolve")

	plugin := byID["org.apache.maven.plugins:maven-compiler-plugin"]
	assert.Equal(t, schemas.ElementPlugin, plugin.Kind)
	assert.Equal(t, "3.11.0", plugin.Version)

	prop := byID["jackson"]
	assert.Equal(t, schemas.ElementProperty, prop.Kind)
	assert.Equal(t, "2.16.0", prop.Version)

	_, hasCompilerSource := byID["maven.compiler.source"]
	assert.False(t, hasCompilerSource, "only *.version properties are tracked")
}

func TestParsePOM_PropertyOrderIsStable(t *testing.T) {
	pom := `<project>
  <properties>
    <zookeeper.version>3.9.1</zookeeper.version>
    <jackson.version>2.16.0</jackson.version>
    <guava.version>32.1.2-jre</guava.version>
  </properties>
</project>`

	entries, err := ParsePOM([]byte(pom))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	var ids []string
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"guava", "jackson", "zookeeper"}, ids,
		"property entries come out sorted, not in map order")
}

func TestParsePOM_Malformed(t *testing.T) {
	_, err := ParsePOM([]byte("<project><dependencies>"))
	assert.Error(t, err)

	_, err = ParsePOM([]byte("<notpom/>"))
	assert.Error(t, err)
}

func TestParseGradle(t *testing.T) {
	script := `
plugins {
    id 'org.springframework.boot' version '3.2.0'
}
dependencies {
    implementation 'com.google.guava:guava:32.1.2-jre'
    testImplementation "junit:junit:4.13.2"
    // implementation 'commented:out:1.0.0'
}
`
	entries := ParseGradle([]byte(script))

	byID := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	assert.Equal(t, "32.1.2-jre", byID["com.google.guava:guava"].Version)
	assert.Equal(t, "4.13.2", byID["junit:junit"].Version)
	assert.Equal(t, schemas.ElementPlugin, byID["org.springframework.boot"].Kind)
	assert.Equal(t, "3.2.0", byID["org.springframework.boot"].Version)
	_, commented := byID["commented:out"]
	assert.False(t, commented)
}

func TestDiffEntries(t *testing.T) {
	oldEntries := []Entry{
		{ID: "com.google.guava:guava", Version: "31.1-jre", Kind: schemas.ElementDependency},
		{ID: "junit:junit", Version: "4.13.2", Kind: schemas.ElementDependency},
		{ID: "commons-lang:commons-lang", Version: "2.6", Kind: schemas.ElementDependency},
	}
	newEntries := []Entry{
		{ID: "com.google.guava:guava", Version: "32.1.2-jre", Kind: schemas.ElementDependency},
		{ID: "junit:junit", Version: "4.13.2", Kind: schemas.ElementDependency},
		{ID: "org.apache.commons:commons-lang3", Version: "3.14.0", Kind: schemas.ElementDependency},
	}

	changes := DiffEntries(oldEntries, newEntries)
	require.Len(t, changes, 3)

	byID := make(map[string]schemas.VersionChange, len(changes))
	for _, c := range changes {
		byID[c.DependencyID] = c
	}

	guava := byID["com.google.guava:guava"]
	assert.Equal(t, schemas.SignificanceMajor, guava.Significance)
	assert.Equal(t, "31.1-jre", guava.OldVersion)
	assert.Equal(t, "32.1.2-jre", guava.NewVersion)

	assert.Equal(t, schemas.SignificanceAddition, byID["org.apache.commons:commons-lang3"].Significance)
	assert.Equal(t, schemas.SignificanceRemoval, byID["commons-lang:commons-lang"].Significance)

	_, unchanged := byID["junit:junit"]
	assert.False(t, unchanged, "unchanged entries produce no change")
}
