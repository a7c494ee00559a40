package main

import (
	"context"

	"github.com/tss-calculator/release-tools/pkg/release/application/model"
	"github.com/tss-calculator/release-tools/pkg/release/infrastructure/dependency"
)

var modes = []string{
	"release",
	"hotfix merge request",
	"deploy",
}

// menu asks which mode to run when no command was given.
func menu(ctx context.Context, options model.RunOptions) error {
	dependencyContainer, err := dependency.ContainerFromContext(ctx)
	if err != nil {
		return err
	}
	prompter := dependencyContainer.Prompter()
	mode, err := prompter.Select("What do you want to do?", modes)
	if err != nil {
		return err
	}
	switch mode {
	case 1:
		branch, err := prompter.Input("Release branch")
		if err != nil {
			return err
		}
		return hotfixMergeRequest(ctx, branch, options)
	case 2:
		return deploy(ctx, options)
	default:
		return release(ctx, options)
	}
}
