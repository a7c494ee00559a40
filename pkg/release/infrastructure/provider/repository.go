package provider

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/tss-calculator/release-tools/pkg/release/application/service"
	"github.com/tss-calculator/release-tools/pkg/release/infrastructure/command"
)

func NewRepositoryProvider(
	workDir string,
	runner command.Runner,
) service.RepositoryProvider {
	return &repositoryProvider{
		workDir: workDir,
		runner:  runner,
	}
}

type repositoryProvider struct {
	workDir string
	runner  command.Runner
}

func (provider repositoryProvider) IsRepository(ctx context.Context) (bool, error) {
	output, err := provider.git(ctx, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		if exitCode(err) > 0 {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to inspect working directory")
	}
	return strings.TrimSpace(output) == "true", nil
}

func (provider repositoryProvider) CurrentBranch(ctx context.Context) (string, error) {
	output, err := provider.git(ctx, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err != nil {
		if exitCode(err) == 1 {
			return "", nil
		}
		return "", errors.Wrap(err, "failed to read current branch")
	}
	return strings.TrimSpace(output), nil
}

func (provider repositoryProvider) IsClean(ctx context.Context) (bool, error) {
	output, err := provider.git(ctx, "status", "--porcelain", "--untracked-files=normal")
	if err != nil {
		return false, errors.Wrap(err, "failed to read working tree status")
	}
	return strings.TrimSpace(output) == "", nil
}

func (provider repositoryProvider) Fetch(ctx context.Context, remote string) error {
	_, err := provider.git(ctx, "fetch", "--tags", "--quiet", remote)
	return errors.Wrapf(err, "failed to fetch remote %v", remote)
}

func (provider repositoryProvider) RevParse(ctx context.Context, rev string) (string, error) {
	output, err := provider.git(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve %v", rev)
	}
	return strings.TrimSpace(output), nil
}

func (provider repositoryProvider) RefExists(ctx context.Context, ref string) (bool, error) {
	_, err := provider.git(ctx, "show-ref", "--verify", "--quiet", ref)
	if err == nil {
		return true, nil
	}
	if exitCode(err) == 1 {
		return false, nil
	}
	return false, errors.Wrapf(err, "failed to look up %v", ref)
}

func (provider repositoryProvider) ListTags(ctx context.Context, pattern string) ([]string, error) {
	output, err := provider.git(ctx, "tag", "--list", "--sort=-v:refname", pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list tags %v", pattern)
	}
	return lines(output), nil
}

func (provider repositoryProvider) Log(ctx context.Context, revRange string) ([]service.Commit, error) {
	output, err := provider.git(ctx, "log", "--no-merges", "--format=%h%x09%s", revRange, "--")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read log %v", revRange)
	}
	var commits []service.Commit
	for _, line := range lines(output) {
		hash, subject, _ := strings.Cut(line, "\t")
		commits = append(commits, service.Commit{Hash: hash, Subject: subject})
	}
	return commits, nil
}

func (provider repositoryProvider) CountCommits(ctx context.Context, revRange string) (int, error) {
	output, err := provider.git(ctx, "rev-list", "--count", revRange, "--")
	if err != nil {
		return 0, errors.Wrapf(err, "failed to count commits %v", revRange)
	}
	count, err := strconv.Atoi(strings.TrimSpace(output))
	return count, errors.Wrapf(err, "unexpected rev-list output %q", output)
}

func (provider repositoryProvider) CreateBranch(ctx context.Context, branch string) error {
	_, err := provider.git(ctx, "checkout", "--quiet", "-b", branch)
	return errors.Wrapf(err, "failed to create branch %v", branch)
}

func (provider repositoryProvider) Checkout(ctx context.Context, ref string) error {
	if ref == "" {
		return errors.New("ref to checkout is empty")
	}
	_, err := provider.git(ctx, "checkout", "--quiet", ref)
	return errors.Wrapf(err, "failed to checkout %v", ref)
}

func (provider repositoryProvider) CreateAnnotatedTag(ctx context.Context, tag, message string) error {
	_, err := provider.git(ctx, "tag", "--annotate", "--message", message, tag)
	return errors.Wrapf(err, "failed to create tag %v", tag)
}

func (provider repositoryProvider) Push(ctx context.Context, remote, ref string) error {
	_, err := provider.git(ctx, "push", "--quiet", remote, ref)
	return errors.Wrapf(err, "failed to push %v to %v", ref, remote)
}

func (provider repositoryProvider) DeleteRemoteRef(ctx context.Context, remote, ref string) error {
	_, err := provider.git(ctx, "push", "--quiet", "--delete", remote, ref)
	return errors.Wrapf(err, "failed to delete %v on %v", ref, remote)
}

func (provider repositoryProvider) DeleteTag(ctx context.Context, tag string) error {
	_, err := provider.git(ctx, "tag", "--delete", tag)
	return errors.Wrapf(err, "failed to delete tag %v", tag)
}

func (provider repositoryProvider) DeleteBranch(ctx context.Context, branch string) error {
	_, err := provider.git(ctx, "branch", "--delete", "--force", branch)
	return errors.Wrapf(err, "failed to delete branch %v", branch)
}

func (provider repositoryProvider) RemoteURL(ctx context.Context, remote string) (string, error) {
	output, err := provider.git(ctx, "remote", "get-url", remote)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read url of remote %v", remote)
	}
	return strings.TrimSpace(output), nil
}

func (provider repositoryProvider) ShallowClone(ctx context.Context, url, ref, dir string) error {
	_, err := provider.runner.Execute(ctx, command.Command{
		Executable: "git",
		Args:       []string{"-c", "advice.detachedHead=false", "clone", "--quiet", "--depth", "1", "--branch", ref, url, dir},
	})
	return errors.Wrapf(err, "failed to clone %v at %v", url, ref)
}

func (provider repositoryProvider) git(ctx context.Context, args ...string) (string, error) {
	return provider.runner.Execute(ctx, command.Command{
		WorkDir:    provider.workDir,
		Executable: "git",
		Args:       args,
	})
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func lines(output string) []string {
	var result []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}
	return result
}
