package orchestrator

import (
	"errors"
	"fmt"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/internal/config"
)

// Snapshot pins the repository state taken just before fixes are applied, so
// a blocked validation can restore it exactly.
type Snapshot struct {
	Branch string
	Hash   plumbing.Hash

	repo *git.Repository
}

// Snapshotter commits the pre-fix working tree onto a snapshot branch and can
// hard-reset back to it.
type Snapshotter struct {
	logger *zap.Logger
	author config.GitConfig
}

// NewSnapshotter creates a snapshotter with the configured committer identity.
func NewSnapshotter(logger *zap.Logger, author config.GitConfig) *Snapshotter {
	return &Snapshotter{
		logger: logger.Named("snapshot"),
		author: author,
	}
}

// IsNotRepository reports whether taking a snapshot failed because the path
// is not a git repository.
func IsNotRepository(err error) bool {
	return errors.Is(err, git.ErrRepositoryNotExists)
}

// Take stages and commits everything in the working tree, then points a
// snapshot branch at the commit. Staging first matters: the manifest bump
// under repair is usually uncommitted, and a later revert must keep it.
func (s *Snapshotter) Take(repoPath, runID string) (*Snapshot, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %s: %w", repoPath, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return nil, fmt.Errorf("failed to stage working tree: %w", err)
	}
	hash, err := wt.Commit("pre-fix snapshot "+runID, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  s.author.AuthorName,
			Email: s.author.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to commit snapshot: %w", err)
	}

	branch := "dependafix-snapshot-" + runID
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(branch), hash)
	if err := repo.Storer.SetReference(ref); err != nil {
		return nil, fmt.Errorf("failed to create snapshot branch %s: %w", branch, err)
	}

	s.logger.Info("Snapshot taken",
		zap.String("branch", branch),
		zap.String("hash", hash.String()))
	return &Snapshot{Branch: branch, Hash: hash, repo: repo}, nil
}

// Revert hard-resets the working tree to the snapshot commit, discarding all
// applied fixes.
func (s *Snapshotter) Revert(snap *Snapshot) error {
	wt, err := snap.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree for revert: %w", err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: snap.Hash, Mode: git.HardReset}); err != nil {
		return fmt.Errorf("failed to reset to snapshot %s: %w", snap.Hash, err)
	}
	s.logger.Info("Working tree reverted to snapshot", zap.String("branch", snap.Branch))
	return nil
}

// Drop deletes the snapshot branch. The commit stays reachable from HEAD.
func (s *Snapshotter) Drop(snap *Snapshot) error {
	return snap.repo.Storer.RemoveReference(plumbing.NewBranchReferenceName(snap.Branch))
}
