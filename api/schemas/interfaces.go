package schemas

import (
	"context"
	"time"
)

// -- Fix Generation Interface --

// FixGenerator is the external fix-generation collaborator. Implementations
// must return an error (or Success=false) rather than hang; callers always
// carry a fallback path, so a failing generator never fails the pipeline.
type FixGenerator interface {
	// GenerateFix requests a coordinated code change for a single issue.
	GenerateFix(ctx context.Context, req GenerationRequest) (*GenerationResponse, error)
	// GenerateGroupFix requests one coordinated change covering every file in
	// the request's Files list, so cross-file edits stay mutually consistent.
	GenerateGroupFix(ctx context.Context, req GenerationRequest) (*GenerationResponse, error)
}

// -- Build Interfaces --

// BuildRunner executes build-tool goals against a fixed repository checkout.
// It is the only way the pipeline touches the build tool, which keeps the
// validator and orchestrator testable without a toolchain installed.
type BuildRunner interface {
	// Run invokes the configured build tool with the given goals and returns
	// the combined output. A failing build is a normal unsuccessful result;
	// only a subprocess launch failure returns an error.
	Run(ctx context.Context, goals ...Goal) (*BuildResult, error)
	// Tool reports which build tool this runner drives.
	Tool() BuildToolKind
}

// -- Hosting Interface --

// Host is the version-control hosting collaborator. The pipeline consumes
// only these operations and never implements hosting-specific auth or
// transport itself.
type Host interface {
	// Checkout clones the repository at the given ref and returns the local path.
	Checkout(ctx context.Context, repoURL, ref string) (string, error)
	// CreateBranch creates and switches to a new branch in the local checkout.
	CreateBranch(repoPath, name string) error
	// Commit stages the whole working tree and records a commit.
	Commit(repoPath, message string) error
	// Push publishes the current branch to the remote.
	Push(ctx context.Context, repoPath string) error
	// CreatePullRequest opens a pull request and returns its number and URL.
	CreatePullRequest(ctx context.Context, title, body, head, base string) (*PullRequest, error)
}

// -- Clock (test seam) --

// Clock abstracts time for components that stamp results.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock.
type RealClock struct{}

// Now returns the current wall-clock time.
func (RealClock) Now() time.Time { return time.Now() }
