package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/tss-calculator/go-lib/pkg/infrastructure/logger"
	"github.com/urfave/cli/v2"

	"github.com/tss-calculator/release-tools/pkg/release/application/model"
	"github.com/tss-calculator/release-tools/pkg/release/infrastructure/config/settingsconfig"
	"github.com/tss-calculator/release-tools/pkg/release/infrastructure/dependency"
)

func main() {
	// captured before any config file is read so files never shadow it
	environ := os.Environ()

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()
	ctx = listenOSKillSignalsContext(ctx)
	mainLogger := logger.NewTextLogger()

	setup := func(c *cli.Context) error {
		settings, err := settingsconfig.Load(
			settingsconfig.DefaultSources(c.String("repo"), c.String("config"), environ),
			mainLogger,
		)
		if err != nil {
			return err
		}
		if basePath := c.String("deploy-base-path"); basePath != "" {
			settings.DeployBasePath = basePath
		}
		container := dependency.NewDependencyContainer(mainLogger, settings, dependency.Options{
			RepoDir:     c.String("repo"),
			DryRun:      c.Bool("dry-run"),
			SummaryFile: c.String("summary-file"),
		})
		c.Context = dependency.ContainerToContext(c.Context, container)
		return nil
	}

	app := &cli.App{
		Name:  "release",
		Usage: "cut releases, open hotfix merge requests and deploy tagged versions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "additional config file, overrides the user and repository files",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "log every mutating action instead of performing it",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "answer every confirmation with yes",
			},
			&cli.StringFlag{
				Name:  "repo",
				Value: ".",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log debug messages, including every git command",
			},
			&cli.StringFlag{
				Name:  "summary-file",
				Usage: "write the run summary as YAML to this file",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				// go-lib enables debug level from the environment at construction
				if err := os.Setenv("DEBUG", "1"); err != nil {
					return errors.Wrap(err, "failed to enable debug logging")
				}
				mainLogger = logger.NewTextLogger()
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			if err := setup(c); err != nil {
				return err
			}
			return menu(c.Context, runOptions(c))
		},
		Commands: cli.Commands{
			&cli.Command{
				Name:  "release",
				Usage: "create a release branch and tag for the next version",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "version",
						Usage: "release this X.Y.Z version instead of asking",
					},
					&cli.BoolFlag{
						Name:  "open-mr",
						Usage: "open a merge request from the release branch into the default branch",
					},
				},
				Before: setup,
				Action: func(c *cli.Context) error {
					return release(c.Context, runOptions(c))
				},
			},
			&cli.Command{
				Name:  "hotfix-mr",
				Usage: "open a merge request from an existing release branch into the default branch",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "branch",
						Required: true,
					},
				},
				Before: setup,
				Action: func(c *cli.Context) error {
					return hotfixMergeRequest(c.Context, c.String("branch"), runOptions(c))
				},
			},
			&cli.Command{
				Name:  "deploy",
				Usage: "deploy an existing release tag to the deploy base path",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name: "version",
					},
					&cli.StringFlag{
						Name:  "deploy-base-path",
						Usage: "absolute directory to deploy into, overrides RELEASE_DEPLOY_BASE_PATH",
					},
				},
				Before: setup,
				Action: func(c *cli.Context) error {
					return deploy(c.Context, runOptions(c))
				},
			},
		},
	}
	err := app.RunContext(ctx, os.Args)
	if errors.Is(err, model.ErrCancelled) {
		mainLogger.Info("cancelled: " + err.Error())
		return
	}
	if err != nil {
		mainLogger.FatalError(err, "failed execute command "+strings.Join(os.Args, " "))
	}
}

func runOptions(c *cli.Context) model.RunOptions {
	return model.RunOptions{
		DryRun:           c.Bool("dry-run"),
		AutoConfirm:      c.Bool("yes"),
		OpenMergeRequest: c.Bool("open-mr"),
		Version:          c.String("version"),
	}
}

func listenOSKillSignalsContext(ctx context.Context) context.Context {
	var cancelFunc context.CancelFunc
	ctx, cancelFunc = context.WithCancel(ctx)
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		select {
		case <-ch:
			cancelFunc()
		case <-ctx.Done():
			return
		}
	}()
	return ctx
}
