package model

import "fmt"

type ProjectRef = int

// DryRunProjectID stands in for the hosted project id when no API call is made.
const DryRunProjectID ProjectRef = -1

type ReleasePlan struct {
	Version   Version
	Branch    string
	Tag       string
	Changelog string
}

func NewReleasePlan(settings Settings, version Version, changelog string) ReleasePlan {
	return ReleasePlan{
		Version:   version,
		Branch:    settings.BranchName(version),
		Tag:       settings.TagName(version),
		Changelog: changelog,
	}
}

func (plan ReleasePlan) TagMessage() string {
	return fmt.Sprintf("Release %v\n\n%v", plan.Version, plan.Changelog)
}

func (plan ReleasePlan) MergeRequestTitle() string {
	return "Release " + plan.Tag
}

// RemoteArtifactSet records what a single run has pushed so far. An entry is
// only set right after the corresponding push succeeded.
type RemoteArtifactSet struct {
	Branch string
	Tag    string
}

func (set RemoteArtifactSet) Empty() bool {
	return set.Branch == "" && set.Tag == ""
}

type Summary struct {
	Mode            string `yaml:"mode"`
	Version         string `yaml:"version"`
	Branch          string `yaml:"branch,omitempty"`
	Tag             string `yaml:"tag,omitempty"`
	MergeRequestURL string `yaml:"merge_request_url,omitempty"`
	DeployDir       string `yaml:"deploy_dir,omitempty"`
	ModuleFile      string `yaml:"module_file,omitempty"`
	DryRun          bool   `yaml:"dry_run"`
}
