package service

import (
	"context"
	"fmt"
	"strings"
)

const emptyChangelog = "- No changes recorded"

func NewChangelogBuilder(repositoryProvider RepositoryProvider) *ChangelogBuilder {
	return &ChangelogBuilder{repositoryProvider: repositoryProvider}
}

type ChangelogBuilder struct {
	repositoryProvider RepositoryProvider
}

// Commits lists the non-merge commits of until that are not reachable from
// since. A since tag that does not exist selects the whole history.
func (builder *ChangelogBuilder) Commits(ctx context.Context, since, until string) ([]Commit, error) {
	revRange := until
	if since != "" {
		exists, err := builder.repositoryProvider.RefExists(ctx, "refs/tags/"+since)
		if err != nil {
			return nil, err
		}
		if exists {
			revRange = since + ".." + until
		}
	}
	return builder.repositoryProvider.Log(ctx, revRange)
}

func (builder *ChangelogBuilder) Build(ctx context.Context, since, until string) (string, error) {
	commits, err := builder.Commits(ctx, since, until)
	if err != nil {
		return "", err
	}
	return Format(commits), nil
}

// BuildRange formats the commits of an explicit from..to range.
func (builder *ChangelogBuilder) BuildRange(ctx context.Context, from, to string) (string, error) {
	commits, err := builder.repositoryProvider.Log(ctx, from+".."+to)
	if err != nil {
		return "", err
	}
	return Format(commits), nil
}

func Format(commits []Commit) string {
	if len(commits) == 0 {
		return emptyChangelog
	}
	lines := make([]string, 0, len(commits))
	for _, commit := range commits {
		lines = append(lines, fmt.Sprintf("- %v (%v)", commit.Subject, commit.Hash))
	}
	return strings.Join(lines, "\n")
}
