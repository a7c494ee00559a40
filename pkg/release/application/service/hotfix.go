package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/tss-calculator/release-tools/pkg/release/application/model"
)

type Hotfix interface {
	OpenMergeRequest(ctx context.Context, branch string, options model.RunOptions) error
}

func NewHotfixService(
	settings model.Settings,
	logger applogger.Logger,
	repositoryProvider RepositoryProvider,
	hostingClient HostingClient,
	prompter Prompter,
	reporter Reporter,
) Hotfix {
	return &hotfix{
		settings:           settings,
		logger:             logger,
		repositoryProvider: repositoryProvider,
		hostingClient:      hostingClient,
		prompter:           prompter,
		reporter:           reporter,
		changelog:          NewChangelogBuilder(repositoryProvider),
	}
}

type hotfix struct {
	settings model.Settings

	logger             applogger.Logger
	repositoryProvider RepositoryProvider
	hostingClient      HostingClient
	prompter           Prompter
	reporter           Reporter
	changelog          *ChangelogBuilder
}

// OpenMergeRequest proposes merging an existing release branch back into the
// default branch. Nothing is created before the merge request itself, so
// there is nothing to roll back.
func (service hotfix) OpenMergeRequest(ctx context.Context, branch string, options model.RunOptions) error {
	branch = strings.TrimPrefix(strings.TrimSpace(branch), service.settings.Remote+"/")
	if branch == "" {
		return errors.Wrap(model.ErrValidation, "release branch name is empty")
	}
	isRepository, err := service.repositoryProvider.IsRepository(ctx)
	if err != nil {
		return err
	}
	if !isRepository {
		return errors.Wrap(model.ErrValidation, "working directory is not a git repository")
	}

	source := service.settings.RemoteRef(branch)
	target := service.settings.RemoteRef(service.settings.DefaultBranch)
	err = runStep(service.logger, StepValidateRepo, func() error {
		if err := service.repositoryProvider.Fetch(ctx, service.settings.Remote); err != nil {
			return err
		}
		exists, err := service.repositoryProvider.RefExists(ctx, "refs/remotes/"+source)
		if err != nil {
			return err
		}
		if !exists {
			return errors.Wrapf(model.ErrValidation, "branch \"%v\" does not exist on remote %v", branch, service.settings.Remote)
		}
		ahead, err := service.repositoryProvider.CountCommits(ctx, target+".."+source)
		if err != nil {
			return err
		}
		if ahead == 0 {
			return errors.Wrapf(model.ErrValidation, "branch \"%v\" has no commits ahead of \"%v\"", branch, service.settings.DefaultBranch)
		}
		service.logger.Info(fmt.Sprintf("\"%v\" is %d commit(s) ahead of \"%v\"", branch, ahead, service.settings.DefaultBranch))
		return nil
	})
	if err != nil {
		return err
	}

	var changelog string
	err = runStep(service.logger, StepBuildChangelog, func() error {
		changelog, err = service.changelog.BuildRange(ctx, target, source)
		return err
	})
	if err != nil {
		return err
	}

	service.logger.Info(fmt.Sprintf("changes of %v:\n%v", branch, changelog))
	ok, err := confirm(service.prompter, service.logger, options,
		fmt.Sprintf("Open a merge request from \"%v\" into \"%v\"?", branch, service.settings.DefaultBranch))
	if err != nil {
		return errors.WithMessagef(err, "%v failed", StepConfirm)
	}
	if !ok {
		return cancelled("merge request for " + branch)
	}

	var projectID model.ProjectRef
	err = runStep(service.logger, StepResolveProject, func() error {
		remoteURL, err := service.repositoryProvider.RemoteURL(ctx, service.settings.Remote)
		if err != nil {
			return err
		}
		projectID, err = service.hostingClient.ResolveProjectID(ctx, remoteURL)
		return err
	})
	if err != nil {
		return err
	}

	var mergeRequestURL string
	err = runStep(service.logger, StepOpenMergeRequest, func() error {
		mergeRequestURL, err = service.hostingClient.OpenMergeRequest(ctx, projectID, MergeRequest{
			SourceBranch: branch,
			TargetBranch: service.settings.DefaultBranch,
			Title:        "Hotfix " + branch,
			Description:  changelog,
		})
		return err
	})
	if err != nil {
		return err
	}

	summary := model.Summary{
		Mode:            "hotfix merge request",
		Branch:          branch,
		MergeRequestURL: mergeRequestURL,
		DryRun:          options.DryRun,
	}
	if version, ok := model.ParseTag(strings.TrimPrefix(branch, model.ReleaseBranchPrefix), service.settings.TagPrefix); ok {
		summary.Version = version.String()
	}
	return runStep(service.logger, StepSummarize, func() error {
		return service.reporter.Report(summary)
	})
}
