package dependency

import (
	"context"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pkg/errors"
	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/tss-calculator/release-tools/pkg/release/application/model"
	"github.com/tss-calculator/release-tools/pkg/release/application/service"
	"github.com/tss-calculator/release-tools/pkg/release/infrastructure/command"
	"github.com/tss-calculator/release-tools/pkg/release/infrastructure/gitlab"
	"github.com/tss-calculator/release-tools/pkg/release/infrastructure/prompt"
	"github.com/tss-calculator/release-tools/pkg/release/infrastructure/provider"
	"github.com/tss-calculator/release-tools/pkg/release/infrastructure/remote"
	"github.com/tss-calculator/release-tools/pkg/release/infrastructure/report"
)

type dependencyContainerKey struct{}

type Container interface {
	Release() service.Release
	Hotfix() service.Hotfix
	Deployment() service.Deployment
	Prompter() service.Prompter
}

type Options struct {
	RepoDir     string
	DryRun      bool
	SummaryFile string
}

func NewDependencyContainer(
	logger applogger.Logger,
	settings model.Settings,
	options Options,
) Container {
	runner := command.NewCommandRunner(logger)
	repositoryProvider := provider.NewRepositoryProvider(options.RepoDir, runner)
	hostingClient := gitlab.NewClient(gitlab.Config{
		BaseURL:   settings.APIURL,
		Token:     settings.Token,
		VerifyTLS: settings.VerifyTLS,
		DryRun:    options.DryRun,
	}, logger)
	prompter := prompt.NewTerminalPrompter(os.Stdin, os.Stderr)
	reporter := report.NewReporter(os.Stdout, options.SummaryFile)
	deployer := service.NewDeployer(settings, logger, repositoryProvider, osfs.New("/"), remote.ToolName)

	return &container{
		release:    service.NewReleaseService(settings, logger, repositoryProvider, hostingClient, prompter, reporter),
		hotfix:     service.NewHotfixService(settings, logger, repositoryProvider, hostingClient, prompter, reporter),
		deployment: service.NewDeploymentService(settings, logger, repositoryProvider, deployer, prompter, reporter),
		prompter:   prompter,
	}
}

type container struct {
	release    service.Release
	hotfix     service.Hotfix
	deployment service.Deployment
	prompter   service.Prompter
}

func (c *container) Release() service.Release {
	return c.release
}

func (c *container) Hotfix() service.Hotfix {
	return c.hotfix
}

func (c *container) Deployment() service.Deployment {
	return c.deployment
}

func (c *container) Prompter() service.Prompter {
	return c.prompter
}

func ContainerFromContext(ctx context.Context) (Container, error) {
	v := ctx.Value(dependencyContainerKey{})
	if c, ok := v.(Container); ok {
		return c, nil
	}
	return nil, errors.New("dependency container not found")
}

func ContainerToContext(ctx context.Context, c Container) context.Context {
	return context.WithValue(ctx, dependencyContainerKey{}, c)
}
