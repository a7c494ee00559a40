package main

import (
	"context"

	"github.com/tss-calculator/release-tools/pkg/release/application/model"
	"github.com/tss-calculator/release-tools/pkg/release/infrastructure/dependency"
)

func hotfixMergeRequest(ctx context.Context, branch string, options model.RunOptions) error {
	dependencyContainer, err := dependency.ContainerFromContext(ctx)
	if err != nil {
		return err
	}
	return dependencyContainer.Hotfix().OpenMergeRequest(ctx, branch, options)
}
