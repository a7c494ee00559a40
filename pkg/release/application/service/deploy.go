package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/errors"
	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/tss-calculator/release-tools/pkg/release/application/model"
)

const moduleFilesDir = "mf"

var moduleFileTemplate = template.Must(template.New("modulefile").Parse(`#%Module1.0
##
## {{.Tool}} {{.Version}}
##
proc ModulesHelp { } {
    puts stderr "{{.Tool}} version {{.Version}}"
}
module-whatis "{{.Tool}} {{.Version}}"

set root {{.BasePath}}/{{.Tool}}/{{.Version}}
prepend-path PATH $root/bin
`))

type moduleFileVariables struct {
	Tool     string
	Version  string
	BasePath string
}

// ToolNameResolver derives the deployed tool name from a remote URL.
type ToolNameResolver func(remoteURL string) (string, error)

type DeployResult struct {
	CheckoutDir string
	ModuleFile  string
	Predecessor string
}

type Deployer interface {
	Deploy(ctx context.Context, version model.Version, options model.RunOptions) (DeployResult, error)
}

func NewDeployer(
	settings model.Settings,
	logger applogger.Logger,
	repositoryProvider RepositoryProvider,
	fs billy.Filesystem,
	toolName ToolNameResolver,
) Deployer {
	return &deployer{
		settings:           settings,
		logger:             logger,
		repositoryProvider: repositoryProvider,
		fs:                 fs,
		toolName:           toolName,
	}
}

type deployer struct {
	settings model.Settings

	logger             applogger.Logger
	repositoryProvider RepositoryProvider
	fs                 billy.Filesystem
	toolName           ToolNameResolver
}

// Deploy checks out the release tag under the base path and writes its module
// file. Existing checkouts or module files are never overwritten.
func (d deployer) Deploy(ctx context.Context, version model.Version, options model.RunOptions) (DeployResult, error) {
	base := d.settings.DeployBasePath
	if base == "" {
		return DeployResult{}, errors.Wrap(model.ErrConfig, "deploy base path is not configured")
	}
	if !filepath.IsAbs(base) {
		return DeployResult{}, errors.Wrapf(model.ErrConfig, "deploy base path %v is not absolute", base)
	}
	remoteURL, err := d.repositoryProvider.RemoteURL(ctx, d.settings.Remote)
	if err != nil {
		return DeployResult{}, err
	}
	tool, err := d.toolName(remoteURL)
	if err != nil {
		return DeployResult{}, err
	}

	result := DeployResult{
		CheckoutDir: filepath.Join(base, tool, version.String()),
		ModuleFile:  filepath.Join(base, moduleFilesDir, tool, version.String()),
	}
	for _, path := range []string{result.CheckoutDir, result.ModuleFile} {
		exists, err := d.exists(path)
		if err != nil {
			return DeployResult{}, err
		}
		if exists {
			return DeployResult{}, errors.Wrapf(model.ErrConflict, "%v", path)
		}
	}

	tag := d.settings.TagName(version)
	if options.DryRun {
		d.logger.Info(fmt.Sprintf("[dry-run] skip cloning \"%v\" into %v", tag, result.CheckoutDir))
	} else {
		d.logger.Info(fmt.Sprintf("clone \"%v\" into %v", tag, result.CheckoutDir))
		err = d.repositoryProvider.ShallowClone(ctx, remoteURL, tag, result.CheckoutDir)
		if err != nil {
			return DeployResult{}, err
		}
	}

	content, predecessor, err := d.moduleFile(tool, version)
	if err != nil {
		return DeployResult{}, err
	}
	result.Predecessor = predecessor
	if options.DryRun {
		d.logger.Info(fmt.Sprintf("[dry-run] skip writing module file %v", result.ModuleFile))
		d.logger.Debug(string(content))
		return result, nil
	}
	exists, err := d.exists(result.ModuleFile)
	if err != nil {
		return DeployResult{}, err
	}
	if exists {
		return DeployResult{}, errors.Wrapf(model.ErrConflict, "%v", result.ModuleFile)
	}
	err = d.fs.MkdirAll(filepath.Dir(result.ModuleFile), 0o755)
	if err != nil {
		return DeployResult{}, errors.Wrapf(err, "failed to create %v", filepath.Dir(result.ModuleFile))
	}
	err = util.WriteFile(d.fs, result.ModuleFile, content, 0o644)
	if err != nil {
		return DeployResult{}, errors.Wrapf(err, "failed to write module file %v", result.ModuleFile)
	}
	d.logger.Info(fmt.Sprintf("wrote module file %v", result.ModuleFile))
	return result, nil
}

// moduleFile copies the closest prior module file with the version replaced,
// or renders a fresh one from the template.
func (d deployer) moduleFile(tool string, version model.Version) ([]byte, string, error) {
	dir := filepath.Join(d.settings.DeployBasePath, moduleFilesDir, tool)
	predecessor, err := d.findPredecessor(dir, version)
	if err != nil {
		return nil, "", err
	}
	if predecessor != "" {
		body, err := util.ReadFile(d.fs, filepath.Join(dir, predecessor))
		if err != nil {
			return nil, "", errors.Wrapf(err, "failed to read module file %v", predecessor)
		}
		d.logger.Info(fmt.Sprintf("derive module file from %v", predecessor))
		return []byte(strings.ReplaceAll(string(body), predecessor, version.String())), predecessor, nil
	}

	d.logger.Info("no previous module file, creating one from template")
	var buf bytes.Buffer
	err = moduleFileTemplate.Execute(&buf, moduleFileVariables{
		Tool:     tool,
		Version:  version.String(),
		BasePath: d.settings.DeployBasePath,
	})
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to render module file template")
	}
	return buf.Bytes(), "", nil
}

// findPredecessor returns the name of the highest strict-version module file
// lower than version; other file names are ignored.
func (d deployer) findPredecessor(dir string, version model.Version) (string, error) {
	entries, err := d.fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrapf(err, "failed to list %v", dir)
	}
	var (
		best     model.Version
		bestName string
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		candidate, err := model.ParseVersion(entry.Name())
		if err != nil || !candidate.LessThan(version) {
			continue
		}
		if bestName == "" || best.LessThan(candidate) {
			best, bestName = candidate, entry.Name()
		}
	}
	return bestName, nil
}

func (d deployer) exists(path string) (bool, error) {
	_, err := d.fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, "failed to stat %v", path)
}
