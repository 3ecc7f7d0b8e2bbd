package vcshost

import (
	"context"
	"fmt"
	"os"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/go-github/v58/github"
	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
	"github.com/EnockMagara/dependafix-sub000/internal/config"
)

var _ schemas.Host = (*GitHubHost)(nil)

// GitHubHost implements schemas.Host against GitHub: git operations run
// locally through go-git, the pull request goes through the REST API.
type GitHubHost struct {
	logger *zap.Logger
	git    config.GitConfig
	github config.GitHubConfig
	client *github.Client
}

// New creates a host. An empty token still allows local git operations;
// Push and CreatePullRequest will fail with a clear error.
func New(logger *zap.Logger, gitCfg config.GitConfig, ghCfg config.GitHubConfig) *GitHubHost {
	client := github.NewClient(nil)
	if ghCfg.Token != "" {
		client = client.WithAuthToken(ghCfg.Token)
	}
	return &GitHubHost{
		logger: logger.Named("vcshost"),
		git:    gitCfg,
		github: ghCfg,
		client: client,
	}
}

// Checkout clones the repository at the given ref into a scratch directory
// and returns its path. The caller owns cleanup.
func (h *GitHubHost) Checkout(ctx context.Context, repoURL, ref string) (string, error) {
	dir, err := os.MkdirTemp("", "dependafix-checkout-*")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}

	opts := &git.CloneOptions{
		URL:          repoURL,
		SingleBranch: true,
		Depth:        1,
	}
	if ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(ref)
	}
	if h.github.Token != "" {
		opts.Auth = h.auth()
	}

	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("failed to clone %s: %w", repoURL, err)
	}
	h.logger.Info("Repository checked out",
		zap.String("url", repoURL),
		zap.String("ref", ref),
		zap.String("path", dir))
	return dir, nil
}

// CreateBranch creates and checks out a branch at the current HEAD.
func (h *GitHubHost) CreateBranch(repoPath, name string) error {
	wt, err := worktree(repoPath)
	if err != nil {
		return err
	}
	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
	}); err != nil {
		return fmt.Errorf("failed to create branch %s: %w", name, err)
	}
	return nil
}

// Commit stages everything and commits with the configured identity.
func (h *GitHubHost) Commit(repoPath, message string) error {
	wt, err := worktree(repoPath)
	if err != nil {
		return err
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  h.git.AuthorName,
			Email: h.git.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	h.logger.Debug("Committed", zap.String("hash", hash.String()))
	return nil
}

// Push pushes the current branch to origin.
func (h *GitHubHost) Push(ctx context.Context, repoPath string) error {
	if h.github.Token == "" {
		return fmt.Errorf("push requires a GitHub token (set DEPENDAFIX_GITHUB_TOKEN)")
	}
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return fmt.Errorf("failed to open repository %s: %w", repoPath, err)
	}
	if err := repo.PushContext(ctx, &git.PushOptions{Auth: h.auth()}); err != nil {
		return fmt.Errorf("failed to push: %w", err)
	}
	return nil
}

// CreatePullRequest opens a pull request from head into base.
func (h *GitHubHost) CreatePullRequest(ctx context.Context, title, body, head, base string) (*schemas.PullRequest, error) {
	if h.github.Token == "" {
		return nil, fmt.Errorf("pull request creation requires a GitHub token (set DEPENDAFIX_GITHUB_TOKEN)")
	}
	if h.github.RepoOwner == "" || h.github.RepoName == "" {
		return nil, fmt.Errorf("github.repo_owner and github.repo_name must be configured")
	}
	if base == "" {
		base = h.github.BaseBranch
	}

	pr, _, err := h.client.PullRequests.Create(ctx, h.github.RepoOwner, h.github.RepoName, &github.NewPullRequest{
		Title: github.String(title),
		Body:  github.String(body),
		Head:  github.String(head),
		Base:  github.String(base),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pull request: %w", err)
	}

	h.logger.Info("Pull request created",
		zap.Int("number", pr.GetNumber()),
		zap.String("url", pr.GetHTMLURL()))
	return &schemas.PullRequest{Number: pr.GetNumber(), URL: pr.GetHTMLURL()}, nil
}

func (h *GitHubHost) auth() *githttp.BasicAuth {
	return &githttp.BasicAuth{Username: "x-access-token", Password: h.github.Token}
}

func worktree(repoPath string) (*git.Worktree, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %s: %w", repoPath, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}
	return wt, nil
}
