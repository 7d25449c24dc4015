// Package gitrepo commits the persisted state files back to the repository
// the checker runs in, replacing the CI platform's commit step for
// standalone and daemon runs.
package gitrepo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/pababhi7/device-checker/internal/config"
	"github.com/pababhi7/device-checker/internal/logger"
)

// Repo wraps an opened git repository for state commits.
type Repo struct {
	repo    *git.Repository
	root    string
	remote  string
	push    bool
	author  object.Signature
	message string
	token   string
}

// Open opens the repository described by the commit configuration. The push
// token is read from the GIT_TOKEN environment variable.
func Open(cfg config.CommitConfig) (*Repo, error) {
	root, err := filepath.Abs(cfg.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("resolving repo path: %w", err)
	}

	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("opening repository %s: %w", root, err)
	}

	return &Repo{
		repo:   repo,
		root:   root,
		remote: cfg.Remote,
		push:   cfg.Push,
		author: object.Signature{
			Name:  cfg.AuthorName,
			Email: cfg.AuthorEmail,
		},
		message: cfg.Message,
		token:   os.Getenv("GIT_TOKEN"),
	}, nil
}

// CommitFiles stages the given files and commits them. A worktree with no
// staged changes is not an error; the state simply matched what was already
// committed. Pushing is attempted only when configured and tolerates the
// remote already being up to date.
func (r *Repo) CommitFiles(paths ...string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}

	staged := 0
	for _, path := range paths {
		rel, err := r.relPath(path)
		if err != nil {
			return err
		}
		if _, err := wt.Add(rel); err != nil {
			return fmt.Errorf("staging %s: %w", rel, err)
		}
		staged++
	}

	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("reading worktree status: %w", err)
	}
	if status.IsClean() {
		logger.Debug("state files unchanged, nothing to commit", nil)
		return nil
	}

	sig := r.author
	sig.When = time.Now()
	hash, err := wt.Commit(r.message, &git.CommitOptions{Author: &sig})
	if err != nil {
		return fmt.Errorf("committing state: %w", err)
	}
	logger.Info("state committed", logger.Fields{
		"commit": hash.String(),
		"files":  staged,
	})

	if !r.push {
		return nil
	}
	return r.pushRemote()
}

func (r *Repo) pushRemote() error {
	opts := &git.PushOptions{RemoteName: r.remote}
	if r.token != "" {
		// Most git hosts accept the token as the basic-auth password with
		// any username.
		opts.Auth = &githttp.BasicAuth{Username: "token", Password: r.token}
	}

	if err := r.repo.Push(opts); err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			return nil
		}
		return fmt.Errorf("pushing to %s: %w", r.remote, err)
	}
	return nil
}

// relPath converts an absolute or working-directory-relative path into a
// path relative to the repository root, as the worktree API requires.
func (r *Repo) relPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the repository %s", path, r.root)
	}
	return filepath.ToSlash(rel), nil
}
