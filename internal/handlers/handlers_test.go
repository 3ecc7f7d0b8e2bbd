package handlers

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
	"github.com/EnockMagara/dependafix-sub000/internal/fixgen"
)

// fakeGen is a scriptable generation collaborator.
type fakeGen struct {
	resp       *schemas.GenerationResponse
	groupResp  *schemas.GenerationResponse
	err        error
	calls      int
	groupCalls int
}

func (f *fakeGen) GenerateFix(ctx context.Context, req schemas.GenerationRequest) (*schemas.GenerationResponse, error) {
	f.calls++
	return f.resp, f.err
}

func (f *fakeGen) GenerateGroupFix(ctx context.Context, req schemas.GenerationRequest) (*schemas.GenerationResponse, error) {
	f.groupCalls++
	return f.groupResp, f.err
}

func TestRegistry_ApplyOrder(t *testing.T) {
	r := NewRegistry(zap.NewNop(), &fakeGen{})

	want := []schemas.Category{
		schemas.CategoryDependencyScope,
		schemas.CategoryRemovedClass,
		schemas.CategoryDeprecatedMethod,
		schemas.CategoryAPISignatureChange,
		schemas.CategoryMultiFileChange,
	}
	assert.Equal(t, want, r.ApplyOrder())

	all := r.All()
	require.Len(t, all, len(want))
	for i, h := range all {
		assert.Equal(t, want[i], h.Category())
	}
}

func TestDetect_Deprecated(t *testing.T) {
	h := NewDeprecatedMethodHandler(zap.NewNop(), &fakeGen{}, NewApplier(zap.NewNop()))

	output := "[WARNING] /src/A.java:[12,5] newInstance() in Class has been deprecated\n" +
		"Note: App.java uses or overrides a deprecated API.\n" +
		"[INFO] nothing here\n"
	issues := h.Detect(output, "/repo")
	require.Len(t, issues, 2)

	assert.Equal(t, "/src/A.java", issues[0].File)
	assert.Equal(t, 12, issues[0].Line)
	assert.Equal(t, schemas.CategoryDeprecatedMethod, issues[0].Category)
	assert.InDelta(t, 0.75, issues[0].Confidence, 0.001)
}

func TestDetect_Signature(t *testing.T) {
	h := NewAPISignatureChangeHandler(zap.NewNop(), &fakeGen{}, NewApplier(zap.NewNop()))

	output := "[ERROR] /src/B.java:[30,14] method create in class Factory cannot be applied to given types\n" +
		"/src/C.java:7: error: incompatible types: String cannot be converted to Duration\n"
	issues := h.Detect(output, "/repo")
	require.Len(t, issues, 2)

	assert.Equal(t, "/src/B.java", issues[0].File)
	assert.Equal(t, 30, issues[0].Line)
	assert.Equal(t, "/src/C.java", issues[1].File)
	assert.Equal(t, 7, issues[1].Line)
}

func TestDetect_Signature_LocationOnEarlierLine(t *testing.T) {
	h := NewAPISignatureChangeHandler(zap.NewNop(), &fakeGen{}, NewApplier(zap.NewNop()))

	output := "/src/D.java:15: error: no suitable method found for send(String,int)\n" +
		"    actual and formal argument lists differ in length\n"
	issues := h.Detect(output, "/repo")
	require.Len(t, issues, 1)
	assert.Equal(t, "/src/D.java", issues[0].File)
	assert.Equal(t, 15, issues[0].Line)
}

func TestDetect_Scope_TargetsManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pom.xml", "<project/>")
	h := NewDependencyScopeHandler(zap.NewNop(), &fakeGen{}, NewApplier(zap.NewNop()))

	output := "java.lang.NoClassDefFoundError: org/apache/commons/lang3/StringUtils\n"
	issues := h.Detect(output, dir)
	require.Len(t, issues, 1)
	assert.Equal(t, filepath.Join(dir, "pom.xml"), issues[0].File)
	assert.Equal(t, schemas.CategoryDependencyScope, issues[0].Category)
}

func TestGenerateFix_ScopeStaticFallback(t *testing.T) {
	dir := t.TempDir()
	pom := writeFile(t, dir, "pom.xml",
		"<project>\n"+
			"  <dependencies>\n"+
			"    <dependency>\n"+
			"      <scope>provided</scope>\n"+
			"    </dependency>\n"+
			"  </dependencies>\n"+
			"</project>\n")

	gen := &fakeGen{err: errors.New("service down")}
	h := NewDependencyScopeHandler(zap.NewNop(), gen, NewApplier(zap.NewNop()))

	issues := h.Detect("java.lang.NoClassDefFoundError: org/example/Gone\n", dir)
	require.Len(t, issues, 1)
	assert.Equal(t, pom, issues[0].File)
	assert.Equal(t, 4, issues[0].Line, "issue points at the manifest's scope element")

	// With the collaborator down, the scope rewrite must come from the static
	// table, not degrade to a manual-review stub.
	fix := h.GenerateFix(context.Background(), issues[0], nil)
	assert.False(t, fix.ManualReview)
	assert.Contains(t, fix.NewCode, "<scope>compile</scope>")
	assert.NotContains(t, fix.NewCode, "provided")
	assert.LessOrEqual(t, fix.Confidence, fixgen.FallbackConfidenceCap)
}

func TestDetect_RemovedClass(t *testing.T) {
	h := NewRemovedClassHandler(zap.NewNop(), &fakeGen{}, NewApplier(zap.NewNop()))

	output := "[ERROR] /src/E.java:[4,1] package org.apache.commons.lang does not exist\n" +
		"java.lang.ClassNotFoundException: org.apache.commons.lang.StringUtils\n"
	issues := h.Detect(output, "/repo")
	require.Len(t, issues, 2)

	assert.Equal(t, "/src/E.java", issues[0].File)
	assert.Contains(t, issues[0].Message, "org.apache.commons.lang")
	assert.Contains(t, issues[1].Message, "StringUtils")
}

func TestGenerateFix_CollaboratorWins(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "A.java", "line one\nObject o = clazz.newInstance();\n")

	gen := &fakeGen{resp: &schemas.GenerationResponse{
		Success:         true,
		ReplacementCode: "Object o = clazz.getDeclaredConstructor().newInstance();",
		Explanation:     "Use the declared constructor.",
		Confidence:      0.92,
	}}
	h := NewDeprecatedMethodHandler(zap.NewNop(), gen, NewApplier(zap.NewNop()))

	fix := h.GenerateFix(context.Background(), schemas.Issue{
		Category: schemas.CategoryDeprecatedMethod,
		File:     path,
		Line:     2,
		Message:  "newInstance() has been deprecated",
	}, nil)

	assert.False(t, fix.ManualReview)
	assert.InDelta(t, 0.92, fix.Confidence, 0.001)
	assert.Equal(t, "Object o = clazz.getDeclaredConstructor().newInstance();", fix.NewCode)
	assert.Equal(t, 1, gen.calls)
}

func TestGenerateFix_StaticFallback(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "A.java", "Object o = clazz.newInstance();\n")

	gen := &fakeGen{err: errors.New("service down")}
	h := NewDeprecatedMethodHandler(zap.NewNop(), gen, NewApplier(zap.NewNop()))

	fix := h.GenerateFix(context.Background(), schemas.Issue{
		Category: schemas.CategoryDeprecatedMethod,
		File:     path,
		Line:     1,
		Message:  "newInstance() has been deprecated",
	}, nil)

	assert.False(t, fix.ManualReview)
	assert.Contains(t, fix.NewCode, ".getDeclaredConstructor().newInstance()")
	assert.LessOrEqual(t, fix.Confidence, fixgen.FallbackConfidenceCap)
}

func TestGenerateFix_ManualReviewStub(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "A.java", "nothing the table knows\n")

	gen := &fakeGen{err: errors.New("service down")}
	h := NewDeprecatedMethodHandler(zap.NewNop(), gen, NewApplier(zap.NewNop()))

	fix := h.GenerateFix(context.Background(), schemas.Issue{
		Category: schemas.CategoryDeprecatedMethod,
		File:     path,
		Line:     1,
		Message:  "strange deprecation",
	}, nil)

	assert.True(t, fix.ManualReview)
	assert.InDelta(t, fixgen.ManualReviewConfidence, fix.Confidence, 0.001)
	assert.Contains(t, fix.NewCode, "FIXME(dependafix): manual review required")
	assert.Contains(t, fix.NewCode, "nothing the table knows", "original line is preserved under the marker")
}

func TestGenerateFix_ClampsConfidence(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "A.java", "call();\n")

	gen := &fakeGen{resp: &schemas.GenerationResponse{
		Success:         true,
		ReplacementCode: "fixed();",
		Confidence:      3.5,
	}}
	h := NewAPISignatureChangeHandler(zap.NewNop(), gen, NewApplier(zap.NewNop()))

	fix := h.GenerateFix(context.Background(), schemas.Issue{File: path, Line: 1}, nil)
	assert.InDelta(t, 1.0, fix.Confidence, 0.001)
}

func TestMultiFile_DetectGroupsSharedSymbols(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Caller.java", "class Caller { HttpClientFactory f; }\n")
	writeFile(t, dir, "Wirer.java", "class Wirer { HttpClientFactory make() { return null; } }\n")
	writeFile(t, dir, "Unrelated.java", "class Unrelated {}\n")

	h := NewMultiFileChangeHandler(zap.NewNop(), &fakeGen{}, NewApplier(zap.NewNop()))
	issues := h.Detect("symbol:   class HttpClientFactory\n", dir)

	require.Len(t, issues, 1)
	assert.Equal(t, schemas.CategoryMultiFileChange, issues[0].Category)

	groups := h.Groups()
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Files, 2)
	assert.Equal(t, []string{"HttpClientFactory"}, groups[0].AffectedSymbols)
}

func TestMultiFile_SingleReferenceIsNoGroup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Only.java", "class Only { Widget w; }\n")

	h := NewMultiFileChangeHandler(zap.NewNop(), &fakeGen{}, NewApplier(zap.NewNop()))
	issues := h.Detect("symbol:   class Widget\n", dir)

	assert.Empty(t, issues)
	assert.Empty(t, h.Groups())
}

func TestMultiFile_GroupFixesAreCoordinated(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "A.java", "class A { Shared s; }\n")
	b := writeFile(t, dir, "B.java", "class B { Shared s; }\n")

	gen := &fakeGen{groupResp: &schemas.GenerationResponse{
		Success:     true,
		Explanation: "Rename Shared to SharedV2 everywhere.",
		Confidence:  0.8,
		Files: []schemas.FileFix{
			{File: a, TargetLine: 1, OldCode: "class A { Shared s; }", ReplacementCode: "class A { SharedV2 s; }"},
			{File: b, TargetLine: 1, OldCode: "class B { Shared s; }", ReplacementCode: "class B { SharedV2 s; }"},
		},
	}}
	h := NewMultiFileChangeHandler(zap.NewNop(), gen, NewApplier(zap.NewNop()))
	require.Len(t, h.Detect("symbol:   class Shared\n", dir), 1)

	fixes := h.GenerateGroupFixes(context.Background(), nil)
	require.Len(t, fixes, 2)
	assert.Equal(t, 1, gen.groupCalls, "one generation call covers the whole group")

	for _, fix := range fixes {
		assert.Len(t, fix.CoordinatedWith, 1)
		assert.NotEqual(t, fix.TargetFile, fix.CoordinatedWith[0])
		assert.False(t, fix.ManualReview)
	}
}

func TestMultiFile_GroupFailureYieldsStubPerFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "A.java", "class A { Shared s; }\n")
	writeFile(t, dir, "B.java", "class B { Shared s; }\n")

	gen := &fakeGen{err: errors.New("service down")}
	h := NewMultiFileChangeHandler(zap.NewNop(), gen, NewApplier(zap.NewNop()))
	require.Len(t, h.Detect("symbol:   class Shared\n", dir), 1)

	fixes := h.GenerateGroupFixes(context.Background(), nil)
	require.Len(t, fixes, 2)
	for _, fix := range fixes {
		assert.True(t, fix.ManualReview)
		assert.True(t, strings.Contains(fix.NewCode, "manual review required"))
	}
}
