package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/leodido/go-conventionalcommits"
	"github.com/leodido/go-conventionalcommits/parser"
	"github.com/pkg/errors"
	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/tss-calculator/release-tools/pkg/release/application/model"
)

type Bump int

const (
	BumpPatch Bump = iota
	BumpMinor
	BumpMajor
)

func (b Bump) String() string {
	switch b {
	case BumpMajor:
		return "major"
	case BumpMinor:
		return "minor"
	default:
		return "patch"
	}
}

func NewVersionOracle(
	settings model.Settings,
	logger applogger.Logger,
	repositoryProvider RepositoryProvider,
) *VersionOracle {
	return &VersionOracle{
		settings:           settings,
		logger:             logger,
		repositoryProvider: repositoryProvider,
	}
}

type VersionOracle struct {
	settings           model.Settings
	logger             applogger.Logger
	repositoryProvider RepositoryProvider
}

// ReleasedTags returns every strict X.Y.Z tag under the configured prefix,
// greatest first. Tags of any other shape are skipped.
func (oracle *VersionOracle) ReleasedTags(ctx context.Context) ([]model.ReleasedTag, error) {
	tags, err := oracle.repositoryProvider.ListTags(ctx, oracle.settings.TagPrefix+"*")
	if err != nil {
		return nil, err
	}
	released := make([]model.ReleasedTag, 0, len(tags))
	for _, tag := range tags {
		version, ok := model.ParseTag(tag, oracle.settings.TagPrefix)
		if !ok {
			oracle.logger.Debug(fmt.Sprintf("skip tag \"%v\"", tag))
			continue
		}
		released = append(released, model.ReleasedTag{Version: version, Tag: tag})
	}
	sort.SliceStable(released, func(i, j int) bool {
		return released[j].Version.LessThan(released[i].Version)
	})
	return released, nil
}

func (oracle *VersionOracle) ReleasedVersions(ctx context.Context) ([]model.Version, error) {
	released, err := oracle.ReleasedTags(ctx)
	if err != nil {
		return nil, err
	}
	versions := make([]model.Version, 0, len(released))
	for _, r := range released {
		versions = append(versions, r.Version)
	}
	return versions, nil
}

// LatestRelease returns the greatest released tag, or the zero value when
// nothing has been released yet.
func (oracle *VersionOracle) LatestRelease(ctx context.Context) (model.ReleasedTag, error) {
	released, err := oracle.ReleasedTags(ctx)
	if err != nil || len(released) == 0 {
		return model.ReleasedTag{}, err
	}
	return released[0], nil
}

func (oracle *VersionOracle) LatestVersion(ctx context.Context) (model.Version, error) {
	latest, err := oracle.LatestRelease(ctx)
	return latest.Version, err
}

func (oracle *VersionOracle) NextCandidates(current model.Version) model.Candidates {
	return current.NextCandidates()
}

func (oracle *VersionOracle) Validate(version string) (model.Version, error) {
	return model.ParseVersion(version)
}

func (oracle *VersionOracle) EnsureAvailable(ctx context.Context, version model.Version) error {
	tag := oracle.settings.TagName(version)
	branch := oracle.settings.BranchName(version)
	refs := []string{
		"refs/tags/" + tag,
		"refs/heads/" + branch,
		"refs/remotes/" + oracle.settings.RemoteRef(branch),
	}
	for _, ref := range refs {
		exists, err := oracle.repositoryProvider.RefExists(ctx, ref)
		if err != nil {
			return err
		}
		if exists {
			return errors.Wrapf(model.ErrConflict, "%v for version %v", ref, version)
		}
	}
	return nil
}

// SuggestBump reads commit subjects as Conventional Commits: a breaking
// change suggests major, a feature minor, anything else patch.
func (oracle *VersionOracle) SuggestBump(commits []Commit) Bump {
	machine := parser.NewMachine(parser.WithTypes(conventionalcommits.TypesConventional))
	bump := BumpPatch
	for _, commit := range commits {
		message, err := machine.Parse([]byte(commit.Subject))
		if err != nil {
			continue
		}
		parsed, ok := message.(*conventionalcommits.ConventionalCommit)
		if !ok || parsed == nil {
			continue
		}
		if parsed.IsBreakingChange() {
			return BumpMajor
		}
		if parsed.IsFeat() {
			bump = BumpMinor
		}
	}
	return bump
}
