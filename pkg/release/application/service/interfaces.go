package service

import (
	"context"

	"github.com/tss-calculator/release-tools/pkg/release/application/model"
)

type Commit struct {
	Hash    string
	Subject string
}

type RepositoryProvider interface {
	IsRepository(ctx context.Context) (bool, error)
	// CurrentBranch returns an empty string when HEAD is detached.
	CurrentBranch(ctx context.Context) (string, error)
	IsClean(ctx context.Context) (bool, error)
	Fetch(ctx context.Context, remote string) error
	RevParse(ctx context.Context, rev string) (string, error)
	RefExists(ctx context.Context, ref string) (bool, error)
	ListTags(ctx context.Context, pattern string) ([]string, error)
	Log(ctx context.Context, revRange string) ([]Commit, error)
	CountCommits(ctx context.Context, revRange string) (int, error)
	CreateBranch(ctx context.Context, branch string) error
	Checkout(ctx context.Context, ref string) error
	CreateAnnotatedTag(ctx context.Context, tag, message string) error
	Push(ctx context.Context, remote, ref string) error
	DeleteRemoteRef(ctx context.Context, remote, ref string) error
	DeleteTag(ctx context.Context, tag string) error
	DeleteBranch(ctx context.Context, branch string) error
	RemoteURL(ctx context.Context, remote string) (string, error)
	ShallowClone(ctx context.Context, url, ref, dir string) error
}

type MergeRequest struct {
	SourceBranch string
	TargetBranch string
	Title        string
	Description  string
}

type HostingClient interface {
	ResolveProjectID(ctx context.Context, remoteURL string) (model.ProjectRef, error)
	SetDefaultBranch(ctx context.Context, projectID model.ProjectRef, branch string) error
	// OpenMergeRequest returns the web URL of the created request; an empty
	// URL means the request exists but the API did not report where.
	OpenMergeRequest(ctx context.Context, projectID model.ProjectRef, request MergeRequest) (string, error)
}

// Prompter is the only place that blocks on user input.
type Prompter interface {
	Confirm(question string) (bool, error)
	Select(question string, options []string) (int, error)
	Input(question string) (string, error)
}

type Reporter interface {
	Report(summary model.Summary) error
}
