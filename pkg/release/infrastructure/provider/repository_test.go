package provider

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tss-calculator/go-lib/pkg/infrastructure/logger"

	"github.com/tss-calculator/release-tools/pkg/release/application/service"
	"github.com/tss-calculator/release-tools/pkg/release/infrastructure/command"
)

// newTestRepository creates a bare "origin" and a clone of it on branch main
// holding a single commit pushed to the remote.
func newTestRepository(t *testing.T) (service.RepositoryProvider, string, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	t.Setenv("GIT_AUTHOR_NAME", "Release Bot")
	t.Setenv("GIT_AUTHOR_EMAIL", "release@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Release Bot")
	t.Setenv("GIT_COMMITTER_EMAIL", "release@example.com")
	t.Setenv("GIT_CONFIG_GLOBAL", os.DevNull)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")

	root := t.TempDir()
	origin := filepath.Join(root, "origin.git")
	work := filepath.Join(root, "work")
	runGit(t, root, "init", "--quiet", "--bare", "--initial-branch=main", origin)
	runGit(t, root, "init", "--quiet", "--initial-branch=main", work)
	runGit(t, work, "remote", "add", "origin", origin)
	commitFile(t, work, "README.md", "init")
	runGit(t, work, "push", "--quiet", "origin", "main")

	runner := command.NewCommandRunner(logger.NewTextLogger())
	return NewRepositoryProvider(work, runner), work, origin
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, string(output))
	return string(output)
}

func commitFile(t *testing.T, dir, name, subject string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(subject), 0o644))
	runGit(t, dir, "add", name)
	runGit(t, dir, "commit", "--quiet", "-m", subject)
}

func TestRepositoryState(t *testing.T) {
	ctx := context.Background()
	provider, work, _ := newTestRepository(t)

	isRepo, err := provider.IsRepository(ctx)
	require.NoError(t, err)
	assert.True(t, isRepo)

	branch, err := provider.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	clean, err := provider.IsClean(ctx)
	require.NoError(t, err)
	assert.True(t, clean)

	require.NoError(t, os.WriteFile(filepath.Join(work, "untracked.txt"), []byte("x"), 0o644))
	clean, err = provider.IsClean(ctx)
	require.NoError(t, err)
	assert.False(t, clean)
	require.NoError(t, os.Remove(filepath.Join(work, "untracked.txt")))

	runGit(t, work, "checkout", "--quiet", "--detach")
	branch, err = provider.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Empty(t, branch)
}

func TestIsRepositoryOutsideWorkTree(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	t.Setenv("GIT_CEILING_DIRECTORIES", os.TempDir())
	runner := command.NewCommandRunner(logger.NewTextLogger())
	dir := t.TempDir()
	isRepo, err := NewRepositoryProvider(dir, runner).IsRepository(context.Background())
	require.NoError(t, err)
	assert.False(t, isRepo)
}

func TestBranchTagAndRemoteLifecycle(t *testing.T) {
	ctx := context.Background()
	provider, work, _ := newTestRepository(t)

	require.NoError(t, provider.Fetch(ctx, "origin"))
	head, err := provider.RevParse(ctx, "HEAD")
	require.NoError(t, err)
	remoteHead, err := provider.RevParse(ctx, "origin/main")
	require.NoError(t, err)
	assert.Equal(t, head, remoteHead)

	require.NoError(t, provider.CreateBranch(ctx, "release/v0.0.1"))
	require.NoError(t, provider.Push(ctx, "origin", "refs/heads/release/v0.0.1"))
	require.NoError(t, provider.CreateAnnotatedTag(ctx, "v0.0.1", "Release 0.0.1\n\n- init"))
	require.NoError(t, provider.Push(ctx, "origin", "refs/tags/v0.0.1"))
	require.NoError(t, provider.Fetch(ctx, "origin"))

	for _, ref := range []string{"refs/heads/release/v0.0.1", "refs/remotes/origin/release/v0.0.1", "refs/tags/v0.0.1"} {
		exists, err := provider.RefExists(ctx, ref)
		require.NoError(t, err)
		assert.True(t, exists, ref)
	}
	message := runGit(t, work, "tag", "--list", "--format=%(contents)", "v0.0.1")
	assert.Contains(t, message, "Release 0.0.1")

	require.NoError(t, provider.DeleteRemoteRef(ctx, "origin", "refs/tags/v0.0.1"))
	require.NoError(t, provider.DeleteTag(ctx, "v0.0.1"))
	require.NoError(t, provider.DeleteRemoteRef(ctx, "origin", "refs/heads/release/v0.0.1"))
	require.NoError(t, provider.Checkout(ctx, "main"))
	require.NoError(t, provider.DeleteBranch(ctx, "release/v0.0.1"))

	for _, ref := range []string{"refs/heads/release/v0.0.1", "refs/tags/v0.0.1"} {
		exists, err := provider.RefExists(ctx, ref)
		require.NoError(t, err)
		assert.False(t, exists, ref)
	}
	remoteRefs := runGit(t, work, "ls-remote", "origin")
	assert.NotContains(t, remoteRefs, "v0.0.1")
}

func TestTagsAndLog(t *testing.T) {
	ctx := context.Background()
	provider, work, _ := newTestRepository(t)

	runGit(t, work, "tag", "v1.2.3")
	runGit(t, work, "tag", "v1.10.0-beta")
	commitFile(t, work, "feature.txt", "feat: add feature")
	commitFile(t, work, "fix.txt", "fix: repair feature")

	tags, err := provider.ListTags(ctx, "v*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"v1.2.3", "v1.10.0-beta"}, tags)

	commits, err := provider.Log(ctx, "v1.2.3..HEAD")
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "fix: repair feature", commits[0].Subject)
	assert.Equal(t, "feat: add feature", commits[1].Subject)
	assert.NotEmpty(t, commits[0].Hash)

	count, err := provider.CountCommits(ctx, "v1.2.3..HEAD")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	url, err := provider.RemoteURL(ctx, "origin")
	require.NoError(t, err)
	assert.Contains(t, url, "origin.git")
}

func TestShallowClone(t *testing.T) {
	ctx := context.Background()
	provider, work, origin := newTestRepository(t)
	runGit(t, work, "tag", "--annotate", "--message", "Release 1.0.0", "v1.0.0")
	runGit(t, work, "push", "--quiet", "origin", "refs/tags/v1.0.0")

	dir := filepath.Join(t.TempDir(), "tool", "1.0.0")
	require.NoError(t, provider.ShallowClone(ctx, "file://"+origin, "v1.0.0", dir))
	_, err := os.Stat(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
}
