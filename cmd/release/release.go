package main

import (
	"context"

	"github.com/tss-calculator/release-tools/pkg/release/application/model"
	"github.com/tss-calculator/release-tools/pkg/release/infrastructure/dependency"
)

func release(ctx context.Context, options model.RunOptions) error {
	dependencyContainer, err := dependency.ContainerFromContext(ctx)
	if err != nil {
		return err
	}
	return dependencyContainer.Release().Release(ctx, options)
}
