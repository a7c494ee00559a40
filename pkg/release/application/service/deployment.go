package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/tss-calculator/release-tools/pkg/release/application/model"
)

const otherVersionOption = "other"

type Deployment interface {
	Deploy(ctx context.Context, options model.RunOptions) error
}

func NewDeploymentService(
	settings model.Settings,
	logger applogger.Logger,
	repositoryProvider RepositoryProvider,
	deployer Deployer,
	prompter Prompter,
	reporter Reporter,
) Deployment {
	return &deployment{
		settings:           settings,
		logger:             logger,
		repositoryProvider: repositoryProvider,
		deployer:           deployer,
		prompter:           prompter,
		reporter:           reporter,
		oracle:             NewVersionOracle(settings, logger, repositoryProvider),
	}
}

type deployment struct {
	settings model.Settings

	logger             applogger.Logger
	repositoryProvider RepositoryProvider
	deployer           Deployer
	prompter           Prompter
	reporter           Reporter
	oracle             *VersionOracle
}

// Deploy installs an already released version without creating anything in
// the repository.
func (service deployment) Deploy(ctx context.Context, options model.RunOptions) error {
	err := runStep(service.logger, StepValidateRepo, func() error {
		isRepository, err := service.repositoryProvider.IsRepository(ctx)
		if err != nil {
			return err
		}
		if !isRepository {
			return errors.Wrap(model.ErrValidation, "working directory is not a git repository")
		}
		return service.repositoryProvider.Fetch(ctx, service.settings.Remote)
	})
	if err != nil {
		return err
	}

	var version model.Version
	err = runStep(service.logger, StepSelectVersion, func() error {
		if options.Version != "" {
			version, err = service.releasedVersion(ctx, options.Version)
			return err
		}
		version, err = service.selectVersion(ctx)
		return err
	})
	if err != nil {
		return err
	}

	ok, err := confirm(service.prompter, service.logger, options,
		fmt.Sprintf("Deploy \"%v\" to %v?", service.settings.TagName(version), service.settings.DeployBasePath))
	if err != nil {
		return errors.WithMessagef(err, "%v failed", StepConfirm)
	}
	if !ok {
		return cancelled("deploy " + version.String())
	}

	var result DeployResult
	err = runStep(service.logger, StepDeploy, func() error {
		result, err = service.deployer.Deploy(ctx, version, options)
		return err
	})
	if err != nil {
		return err
	}

	return runStep(service.logger, StepSummarize, func() error {
		return service.reporter.Report(model.Summary{
			Mode:       "deploy",
			Version:    version.String(),
			Tag:        service.settings.TagName(version),
			DeployDir:  result.CheckoutDir,
			ModuleFile: result.ModuleFile,
			DryRun:     options.DryRun,
		})
	})
}

// selectVersion asks until the answer names an existing release tag.
func (service deployment) selectVersion(ctx context.Context) (model.Version, error) {
	versions, err := service.oracle.ReleasedVersions(ctx)
	if err != nil {
		return model.Version{}, err
	}
	labels := make([]string, 0, len(versions)+1)
	for _, version := range versions {
		labels = append(labels, version.String())
	}
	labels = append(labels, otherVersionOption)

	for {
		index, err := service.prompter.Select("Select the version to deploy", labels)
		if err != nil {
			return model.Version{}, err
		}
		if index < len(versions) {
			return versions[index], nil
		}
		input, err := service.prompter.Input("Version (X.Y.Z)")
		if err != nil {
			return model.Version{}, err
		}
		version, err := service.releasedVersion(ctx, input)
		if err == nil {
			return version, nil
		}
		if !errors.Is(err, model.ErrVersion) && !errors.Is(err, model.ErrNotFound) {
			return model.Version{}, err
		}
		service.logger.Warning(err, "choose another version")
	}
}

func (service deployment) releasedVersion(ctx context.Context, s string) (model.Version, error) {
	version, err := service.oracle.Validate(s)
	if err != nil {
		return model.Version{}, err
	}
	tag := service.settings.TagName(version)
	exists, err := service.repositoryProvider.RefExists(ctx, "refs/tags/"+tag)
	if err != nil {
		return model.Version{}, err
	}
	if !exists {
		return model.Version{}, errors.Wrapf(model.ErrNotFound, "tag \"%v\"", tag)
	}
	return version, nil
}
