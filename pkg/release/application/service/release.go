package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/tss-calculator/release-tools/pkg/release/application/model"
)

type Release interface {
	Release(ctx context.Context, options model.RunOptions) error
}

func NewReleaseService(
	settings model.Settings,
	logger applogger.Logger,
	repositoryProvider RepositoryProvider,
	hostingClient HostingClient,
	prompter Prompter,
	reporter Reporter,
) Release {
	return &release{
		settings:           settings,
		logger:             logger,
		repositoryProvider: repositoryProvider,
		hostingClient:      hostingClient,
		prompter:           prompter,
		reporter:           reporter,
		oracle:             NewVersionOracle(settings, logger, repositoryProvider),
		changelog:          NewChangelogBuilder(repositoryProvider),
	}
}

type release struct {
	settings model.Settings

	logger             applogger.Logger
	repositoryProvider RepositoryProvider
	hostingClient      HostingClient
	prompter           Prompter
	reporter           Reporter
	oracle             *VersionOracle
	changelog          *ChangelogBuilder
}

func (service release) Release(ctx context.Context, options model.RunOptions) error {
	err := runStep(service.logger, StepValidateRepo, func() error {
		return validateRepository(ctx, service.settings, service.logger, service.repositoryProvider)
	})
	if err != nil {
		return err
	}

	previous, err := service.oracle.LatestRelease(ctx)
	if err != nil {
		return err
	}
	latest, since := previous.Version, previous.Tag
	service.logger.Info(fmt.Sprintf("current version is %v", latest))

	var version model.Version
	err = runStep(service.logger, StepSelectVersion, func() error {
		version, err = service.selectVersion(ctx, latest, since, options)
		return err
	})
	if err != nil {
		return err
	}

	var changelog string
	err = runStep(service.logger, StepBuildChangelog, func() error {
		changelog, err = service.changelog.Build(ctx, since, "HEAD")
		return err
	})
	if err != nil {
		return err
	}
	plan := model.NewReleasePlan(service.settings, version, changelog)

	service.logger.Info(fmt.Sprintf("changelog for %v:\n%v", plan.Tag, plan.Changelog))
	ok, err := confirm(service.prompter, service.logger, options,
		fmt.Sprintf("Create branch \"%v\" and tag \"%v\"?", plan.Branch, plan.Tag))
	if err != nil {
		return errors.WithMessagef(err, "%v failed", StepConfirm)
	}
	if !ok {
		return cancelled("release " + plan.Tag)
	}

	mergeRequestURL, err := service.publish(ctx, plan, options)
	if err != nil {
		return err
	}

	if options.DryRun {
		service.logger.Info(fmt.Sprintf("[dry-run] stay on \"%v\"", service.settings.DefaultBranch))
	} else {
		err = runStep(service.logger, StepReturnToDefaultBranch, func() error {
			return returnToDefaultBranch(ctx, service.settings, service.repositoryProvider)
		})
		if err != nil {
			service.logger.Warning(err, "failed to return to the default branch")
		}
	}

	return runStep(service.logger, StepSummarize, func() error {
		return service.reporter.Report(model.Summary{
			Mode:            "release",
			Version:         plan.Version.String(),
			Branch:          plan.Branch,
			Tag:             plan.Tag,
			MergeRequestURL: mergeRequestURL,
			DryRun:          options.DryRun,
		})
	})
}

func (service release) selectVersion(
	ctx context.Context,
	latest model.Version,
	since string,
	options model.RunOptions,
) (model.Version, error) {
	if options.Version != "" {
		version, err := service.oracle.Validate(options.Version)
		if err != nil {
			return model.Version{}, err
		}
		return version, service.oracle.EnsureAvailable(ctx, version)
	}

	commits, err := service.changelog.Commits(ctx, since, "HEAD")
	if err != nil {
		return model.Version{}, err
	}
	suggested := service.oracle.SuggestBump(commits)
	candidates := service.oracle.NextCandidates(latest)
	choices := []struct {
		bump    Bump
		version model.Version
	}{
		{BumpPatch, candidates.Patch},
		{BumpMinor, candidates.Minor},
		{BumpMajor, candidates.Major},
	}
	labels := make([]string, 0, len(choices)+1)
	for _, choice := range choices {
		label := fmt.Sprintf("%-6v %v", choice.bump, choice.version)
		if choice.bump == suggested {
			label += " (suggested)"
		}
		labels = append(labels, label)
	}
	labels = append(labels, "custom")

	index, err := service.prompter.Select(fmt.Sprintf("Select the next version (current %v)", latest), labels)
	if err != nil {
		return model.Version{}, err
	}
	var version model.Version
	if index < len(choices) {
		version = choices[index].version
	} else {
		input, err := service.prompter.Input("Version (X.Y.Z)")
		if err != nil {
			return model.Version{}, err
		}
		version, err = service.oracle.Validate(input)
		if err != nil {
			return model.Version{}, err
		}
	}
	return version, service.oracle.EnsureAvailable(ctx, version)
}

// publish is the guarded region: once it returns an error, everything it
// pushed is rolled back.
func (service release) publish(ctx context.Context, plan model.ReleasePlan, options model.RunOptions) (_ string, err error) {
	rb := newRollback(service.settings, service.logger, service.repositoryProvider)
	defer func() {
		rb.compensate(ctx, err)
	}()

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
		return "", err
	}

	err = runStep(service.logger, StepCreateBranch, func() error {
		if options.DryRun {
			service.logger.Info(fmt.Sprintf("[dry-run] skip creating and pushing branch \"%v\"", plan.Branch))
			return nil
		}
		if err := service.repositoryProvider.CreateBranch(ctx, plan.Branch); err != nil {
			return err
		}
		rb.branchCreated(plan.Branch)
		if err := service.repositoryProvider.Push(ctx, service.settings.Remote, "refs/heads/"+plan.Branch); err != nil {
			return err
		}
		rb.branchPushed(plan.Branch)
		return nil
	})
	if err != nil {
		return "", err
	}

	err = runStep(service.logger, StepCreateTag, func() error {
		if options.DryRun {
			service.logger.Info(fmt.Sprintf("[dry-run] skip creating and pushing tag \"%v\"", plan.Tag))
			return nil
		}
		if err := service.repositoryProvider.CreateAnnotatedTag(ctx, plan.Tag, plan.TagMessage()); err != nil {
			return err
		}
		rb.tagCreated(plan.Tag)
		if err := service.repositoryProvider.Push(ctx, service.settings.Remote, "refs/tags/"+plan.Tag); err != nil {
			return err
		}
		rb.tagPushed(plan.Tag)
		return nil
	})
	if err != nil {
		return "", err
	}

	if service.settings.UpdateDefaultBranch {
		err = runStep(service.logger, StepUpdateDefaultBranch, func() error {
			ok, err := confirm(service.prompter, service.logger, options,
				fmt.Sprintf("Set the default branch of the hosted project to \"%v\"?", plan.Branch))
			if err != nil {
				return err
			}
			if !ok {
				service.logger.Info("keep the hosted default branch unchanged")
				return nil
			}
			return service.hostingClient.SetDefaultBranch(ctx, projectID, plan.Branch)
		})
		if err != nil {
			return "", err
		}
	}

	var mergeRequestURL string
	if options.OpenMergeRequest {
		err = runStep(service.logger, StepOpenMergeRequest, func() error {
			mergeRequestURL, err = service.hostingClient.OpenMergeRequest(ctx, projectID, MergeRequest{
				SourceBranch: plan.Branch,
				TargetBranch: service.settings.DefaultBranch,
				Title:        plan.MergeRequestTitle(),
				Description:  plan.Changelog,
			})
			return err
		})
		if err != nil {
			return "", err
		}
	}

	rb.disarm()
	return mergeRequestURL, nil
}

var errDetachedHead = errors.New("HEAD is detached")

func validateRepository(
	ctx context.Context,
	settings model.Settings,
	logger applogger.Logger,
	repositoryProvider RepositoryProvider,
) error {
	isRepository, err := repositoryProvider.IsRepository(ctx)
	if err != nil {
		return err
	}
	if !isRepository {
		return errors.Wrap(model.ErrValidation, "working directory is not a git repository")
	}

	branch, err := repositoryProvider.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	switch branch {
	case "":
		logger.Warning(errDetachedHead, "releasing the checked out commit")
	case settings.DefaultBranch:
	default:
		return errors.Wrapf(model.ErrValidation, "current branch is \"%v\", expected \"%v\"", branch, settings.DefaultBranch)
	}

	clean, err := repositoryProvider.IsClean(ctx)
	if err != nil {
		return err
	}
	if !clean {
		return errors.Wrap(model.ErrValidation, "working tree has uncommitted or untracked changes")
	}

	err = repositoryProvider.Fetch(ctx, settings.Remote)
	if err != nil {
		return err
	}
	remoteRef := "refs/remotes/" + settings.RemoteRef(settings.DefaultBranch)
	remoteExists, err := repositoryProvider.RefExists(ctx, remoteRef)
	if err != nil {
		return err
	}
	if !remoteExists {
		logger.Warning(
			errors.Wrapf(model.ErrNotFound, "remote branch \"%v\"", settings.RemoteRef(settings.DefaultBranch)),
			"skip sync check, the remote default branch does not exist yet",
		)
		return nil
	}
	local, err := repositoryProvider.RevParse(ctx, "HEAD")
	if err != nil {
		return err
	}
	remote, err := repositoryProvider.RevParse(ctx, remoteRef)
	if err != nil {
		return err
	}
	if local != remote {
		return errors.Wrapf(model.ErrValidation, "HEAD %v is not in sync with %v (%v)", local, settings.RemoteRef(settings.DefaultBranch), remote)
	}
	return nil
}
