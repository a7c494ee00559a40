package service

import (
	"context"
	"fmt"

	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/tss-calculator/release-tools/pkg/release/application/model"
)

func newRollback(
	settings model.Settings,
	logger applogger.Logger,
	repositoryProvider RepositoryProvider,
) *rollback {
	return &rollback{
		settings:           settings,
		logger:             logger,
		repositoryProvider: repositoryProvider,
		armed:              true,
	}
}

// rollback undoes what a release run created once remote mutation began.
type rollback struct {
	settings           model.Settings
	logger             applogger.Logger
	repositoryProvider RepositoryProvider

	armed       bool
	localBranch string
	localTag    string
	remote      model.RemoteArtifactSet
}

func (r *rollback) branchCreated(branch string) { r.localBranch = branch }

func (r *rollback) branchPushed(branch string) { r.remote.Branch = branch }

func (r *rollback) tagCreated(tag string) { r.localTag = tag }

func (r *rollback) tagPushed(tag string) { r.remote.Tag = tag }

func (r *rollback) disarm() {
	r.armed = false
}

// compensate runs only while armed. Every deletion is attempted even if an
// earlier one failed; failures are logged and swallowed.
func (r *rollback) compensate(ctx context.Context, cause error) {
	if !r.armed {
		return
	}
	r.armed = false
	// the run context may already be cancelled by a signal
	ctx = context.WithoutCancel(ctx)
	r.logger.Warning(cause, "release failed, rolling back created branch and tag")

	if !r.remote.Empty() {
		r.deleteRemote(ctx)
	}
	if r.localTag != "" {
		r.attempt(fmt.Sprintf("delete local tag \"%v\"", r.localTag), func() error {
			return r.repositoryProvider.DeleteTag(ctx, r.localTag)
		})
	}
	if r.localBranch != "" {
		r.attempt(fmt.Sprintf("return to \"%v\"", r.settings.DefaultBranch), func() error {
			return returnToDefaultBranch(ctx, r.settings, r.repositoryProvider)
		})
		r.attempt(fmt.Sprintf("delete local branch \"%v\"", r.localBranch), func() error {
			return r.repositoryProvider.DeleteBranch(ctx, r.localBranch)
		})
	}
}

// deleteRemote removes the pushed tag before the pushed branch.
func (r *rollback) deleteRemote(ctx context.Context) {
	r.logger.Info(fmt.Sprintf("rollback: remove pushed refs from \"%v\"", r.settings.Remote))
	if r.remote.Tag != "" {
		r.attempt(fmt.Sprintf("delete remote tag \"%v\"", r.remote.Tag), func() error {
			return r.repositoryProvider.DeleteRemoteRef(ctx, r.settings.Remote, "refs/tags/"+r.remote.Tag)
		})
	}
	if r.remote.Branch != "" {
		r.attempt(fmt.Sprintf("delete remote branch \"%v\"", r.remote.Branch), func() error {
			return r.repositoryProvider.DeleteRemoteRef(ctx, r.settings.Remote, "refs/heads/"+r.remote.Branch)
		})
	}
}

func (r *rollback) attempt(action string, f func() error) {
	if err := f(); err != nil {
		r.logger.Warning(err, fmt.Sprintf("rollback: failed to %v", action))
		return
	}
	r.logger.Info(fmt.Sprintf("rollback: %v", action))
}

// returnToDefaultBranch checks out the local default branch, or its
// remote-tracking ref when there is no local branch.
func returnToDefaultBranch(ctx context.Context, settings model.Settings, repositoryProvider RepositoryProvider) error {
	exists, err := repositoryProvider.RefExists(ctx, "refs/heads/"+settings.DefaultBranch)
	if err != nil {
		return err
	}
	if exists {
		return repositoryProvider.Checkout(ctx, settings.DefaultBranch)
	}
	return repositoryProvider.Checkout(ctx, settings.RemoteRef(settings.DefaultBranch))
}
