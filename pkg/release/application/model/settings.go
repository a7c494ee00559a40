package model

type Settings struct {
	APIURL              string
	Token               string
	VerifyTLS           bool
	DefaultBranch       string
	TagPrefix           string
	Remote              string
	UpdateDefaultBranch bool
	DeployBasePath      string
}

// RunOptions holds per-invocation switches that come from the command line
// rather than from the layered configuration.
type RunOptions struct {
	DryRun           bool
	AutoConfirm      bool
	OpenMergeRequest bool
	Version          string
}

func (s Settings) TagName(version Version) string {
	return s.TagPrefix + version.String()
}

func (s Settings) BranchName(version Version) string {
	return ReleaseBranchPrefix + s.TagName(version)
}

func (s Settings) RemoteRef(branch string) string {
	return s.Remote + "/" + branch
}

const ReleaseBranchPrefix = "release/"
