package service

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/tss-calculator/release-tools/pkg/release/application/model"
)

type Step string

const (
	StepValidateRepo          Step = "validate repository"
	StepSelectVersion         Step = "select version"
	StepBuildChangelog        Step = "build changelog"
	StepConfirm               Step = "confirm"
	StepResolveProject        Step = "resolve project"
	StepCreateBranch          Step = "create branch"
	StepCreateTag             Step = "create tag"
	StepUpdateDefaultBranch   Step = "update default branch"
	StepOpenMergeRequest      Step = "open merge request"
	StepReturnToDefaultBranch Step = "return to default branch"
	StepSummarize             Step = "summarize"
	StepDeploy                Step = "deploy"
)

// runStep logs entry and duration of a step and tags its error with the step.
func runStep(logger applogger.Logger, step Step, f func() error) error {
	logger.Info(fmt.Sprintf("%v...", step))
	start := time.Now()
	err := f()
	if err != nil {
		return errors.WithMessagef(err, "%v failed", step)
	}
	logger.Debug(fmt.Sprintf("%v done in %v", step, time.Since(start).String()))
	return nil
}

// confirm never blocks in dry-run or auto-confirm mode.
func confirm(prompter Prompter, logger applogger.Logger, options model.RunOptions, question string) (bool, error) {
	if options.DryRun || options.AutoConfirm {
		logger.Info(fmt.Sprintf("%v [auto-confirmed]", question))
		return true, nil
	}
	return prompter.Confirm(question)
}

func cancelled(what string) error {
	return errors.Wrap(model.ErrCancelled, what)
}
