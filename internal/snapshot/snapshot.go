// Package snapshot commits the refreshed catalogs and cover art when
// the output directory is a git worktree.
package snapshot

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pkg/errors"

	"github.com/basti564/LauncherIcons/pkg/log"
)

const (
	authorName  = "LauncherIcons"
	authorEmail = "launchericons@users.noreply.github.com"
)

type Error struct {
	Step string
	Path string
	Err  error
}

func (e Error) Error() string {
	return fmt.Sprintf("error processing step:%q path:%q error:%v", e.Step, e.Path, e.Err)
}

func (e Error) Unwrap() error { return e.Err }

// Commit stages everything under path and records a snapshot commit.
// A path that is not a git repository is not an error; the snapshot is
// simply skipped.
func Commit(path string, logger log.Logger) error {
	if logger == nil {
		logger = log.Discard
	}

	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		logger.Infof("%s is not a git repository, skipping snapshot", path)
		return nil
	}
	if err != nil {
		return Error{Step: "opening git repository", Path: path, Err: err}
	}

	wt, err := repo.Worktree()
	if err != nil {
		return Error{Step: "opening worktree", Path: path, Err: err}
	}

	status, err := wt.Status()
	if err != nil {
		return Error{Step: "reading worktree status", Path: path, Err: err}
	}
	if status.IsClean() {
		logger.Infof("no catalog changes, skipping snapshot")
		return nil
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return Error{Step: "staging changes", Path: path, Err: err}
	}

	when := time.Now()
	hash, err := wt.Commit(
		"Update catalogs "+when.Format("2006-01-02"),
		&git.CommitOptions{
			Author: &object.Signature{Name: authorName, Email: authorEmail, When: when},
		},
	)
	if err != nil {
		return Error{Step: "committing snapshot", Path: path, Err: err}
	}

	logger.Infof("committed snapshot %s", hash)
	return nil
}
