package settingsconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/xdg"
	"github.com/hashicorp/go-envparse"
	"github.com/pkg/errors"
	applogger "github.com/tss-calculator/go-lib/pkg/application/logger"

	"github.com/tss-calculator/release-tools/pkg/release/application/model"
)

const (
	KeyAPIURL              = "GITLAB_API_URL"
	KeyToken               = "GITLAB_TOKEN"
	KeyVerifyTLS           = "GITLAB_VERIFY_TLS"
	KeyDefaultBranch       = "RELEASE_DEFAULT_BRANCH"
	KeyTagPrefix           = "RELEASE_TAG_PREFIX"
	KeyRemote              = "RELEASE_REMOTE"
	KeyUpdateDefaultBranch = "RELEASE_UPDATE_DEFAULT_BRANCH"
	KeyDeployBasePath      = "RELEASE_DEPLOY_BASE_PATH"

	appDir       = "release"
	repoFileName = ".release.conf"
)

func defaults() map[string]string {
	return map[string]string{
		KeyAPIURL:              "https://gitlab.com/api/v4",
		KeyToken:               "",
		KeyVerifyTLS:           "true",
		KeyDefaultBranch:       "main",
		KeyTagPrefix:           "v",
		KeyRemote:              "origin",
		KeyUpdateDefaultBranch: "true",
		KeyDeployBasePath:      "",
	}
}

func isKnownKey(key string) bool {
	_, ok := defaults()[key]
	return ok
}

// Sources lists every input of the resolution in ascending priority, except
// TokenFile which is only consulted when no layer provided a token.
type Sources struct {
	UserFile     string
	RepoFile     string
	ExplicitFile string
	Environment  map[string]string
	TokenFile    string
}

// DefaultSources uses the per-user XDG config directory and the repository
// root. environ must be captured before any file is read.
func DefaultSources(repoDir, explicitFile string, environ []string) Sources {
	return Sources{
		UserFile:     filepath.Join(xdg.ConfigHome, appDir, "config"),
		RepoFile:     filepath.Join(repoDir, repoFileName),
		ExplicitFile: explicitFile,
		Environment:  SnapshotEnvironment(environ),
		TokenFile:    filepath.Join(xdg.ConfigHome, appDir, "token"),
	}
}

// SnapshotEnvironment keeps the recognized, non-empty variables of environ.
func SnapshotEnvironment(environ []string) map[string]string {
	snapshot := make(map[string]string)
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || value == "" || !isKnownKey(key) {
			continue
		}
		snapshot[key] = value
	}
	return snapshot
}

type Layer struct {
	Name   string
	Values map[string]string
}

// Merge folds layers left to right; later layers win.
func Merge(layers ...Layer) map[string]string {
	result := make(map[string]string)
	for _, layer := range layers {
		for key, value := range layer.Values {
			result[key] = value
		}
	}
	return result
}

func Load(sources Sources, logger applogger.Logger) (model.Settings, error) {
	layers := []Layer{{Name: "defaults", Values: defaults()}}

	for _, path := range []string{sources.UserFile, sources.RepoFile} {
		if path == "" {
			continue
		}
		values, err := readFile(path)
		if err != nil {
			if !os.IsNotExist(errors.Cause(err)) {
				logger.Warning(err, fmt.Sprintf("skip config file %v", path))
			}
			continue
		}
		layers = append(layers, newFileLayer(path, values, logger))
	}

	if sources.ExplicitFile != "" {
		values, err := readFile(sources.ExplicitFile)
		if err != nil {
			return model.Settings{}, errors.Wrapf(model.ErrConfig, "config file %v: %v", sources.ExplicitFile, err)
		}
		layers = append(layers, newFileLayer(sources.ExplicitFile, values, logger))
	}

	layers = append(layers, Layer{Name: "environment", Values: sources.Environment})

	settings, err := mapToSettings(Merge(layers...))
	if err != nil {
		return model.Settings{}, err
	}
	if settings.Token == "" && sources.TokenFile != "" {
		token, err := readToken(sources.TokenFile)
		if err != nil {
			return model.Settings{}, err
		}
		if token != "" {
			logger.Info(fmt.Sprintf("loaded token from %v", sources.TokenFile))
		}
		settings.Token = token
	}
	return settings, nil
}

func newFileLayer(path string, values map[string]string, logger applogger.Logger) Layer {
	unknown := make([]string, 0)
	for key := range values {
		if !isKnownKey(key) {
			unknown = append(unknown, key)
			delete(values, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		logger.Warning(errors.Errorf("unknown key %v", key), fmt.Sprintf("ignore key in config file %v", path))
	}
	logger.Info(fmt.Sprintf("loaded config file %v", path))
	return Layer{Name: path, Values: values}
}

func readFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer file.Close()
	values, err := envparse.Parse(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %v", path)
	}
	return values, nil
}

func readToken(path string) (string, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrapf(model.ErrConfig, "token file %v: %v", path, err)
	}
	return strings.TrimSpace(string(body)), nil
}

func mapToSettings(values map[string]string) (model.Settings, error) {
	verifyTLS, err := parseBool(KeyVerifyTLS, values[KeyVerifyTLS])
	if err != nil {
		return model.Settings{}, err
	}
	updateDefaultBranch, err := parseBool(KeyUpdateDefaultBranch, values[KeyUpdateDefaultBranch])
	if err != nil {
		return model.Settings{}, err
	}
	return model.Settings{
		APIURL:              values[KeyAPIURL],
		Token:               values[KeyToken],
		VerifyTLS:           verifyTLS,
		DefaultBranch:       values[KeyDefaultBranch],
		TagPrefix:           values[KeyTagPrefix],
		Remote:              values[KeyRemote],
		UpdateDefaultBranch: updateDefaultBranch,
		DeployBasePath:      values[KeyDeployBasePath],
	}, nil
}

func parseBool(key, value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, errors.Wrapf(model.ErrConfig, "%v must be a boolean, got %q", key, value)
}
