package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"
)

func TestCommitSkipsNonRepository(t *testing.T) {
	require.NoError(t, Commit(t.TempDir(), nil))
}

func TestCommitSkipsCleanWorktree(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, Commit(dir, nil))

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	_, err = repo.Head()
	require.Error(t, err) // nothing was committed
}

func TestCommitRecordsChanges(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "pico_apps.json"), []byte("[]"), 0644))
	require.NoError(t, Commit(dir, nil))

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)

	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	require.Contains(t, commit.Message, "Update catalogs")
	require.Equal(t, authorName, commit.Author.Name)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	status, err := wt.Status()
	require.NoError(t, err)
	require.True(t, status.IsClean())
}
