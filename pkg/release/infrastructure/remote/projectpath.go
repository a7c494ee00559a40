// Package remote turns git remote URLs into hosting project paths.
package remote

import (
	"path"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/pkg/errors"

	"github.com/tss-calculator/release-tools/pkg/release/application/model"
)

// ProjectPath returns the slash separated project path (group/subgroup/project)
// of a hosted remote. SSH scp-like, ssh://, git:// and http(s):// URLs are
// supported; local paths are not hosted and yield model.ErrNotFound.
func ProjectPath(remoteURL string) (string, error) {
	endpoint, err := endpoint(remoteURL)
	if err != nil {
		return "", err
	}
	if endpoint.Protocol == "file" {
		return "", errors.Wrapf(model.ErrNotFound, "remote %q is not a hosted project", remoteURL)
	}
	return cleanPath(remoteURL, endpoint.Path)
}

// ToolName is the last segment of the remote project path; local remotes are
// accepted too.
func ToolName(remoteURL string) (string, error) {
	endpoint, err := endpoint(remoteURL)
	if err != nil {
		return "", err
	}
	projectPath, err := cleanPath(remoteURL, endpoint.Path)
	if err != nil {
		return "", err
	}
	return path.Base(projectPath), nil
}

func endpoint(remoteURL string) (*transport.Endpoint, error) {
	remoteURL = strings.TrimSpace(remoteURL)
	if remoteURL == "" {
		return nil, errors.Wrap(model.ErrNotFound, "remote url is empty")
	}
	endpoint, err := transport.NewEndpoint(remoteURL)
	if err != nil {
		return nil, errors.Wrapf(model.ErrNotFound, "failed to parse remote url %q: %v", remoteURL, err)
	}
	return endpoint, nil
}

func cleanPath(remoteURL, p string) (string, error) {
	p = strings.Trim(p, "/")
	p = strings.TrimSuffix(p, ".git")
	p = strings.Trim(p, "/")
	if p == "" {
		return "", errors.Wrapf(model.ErrNotFound, "remote url %q has no project path", remoteURL)
	}
	return p, nil
}
