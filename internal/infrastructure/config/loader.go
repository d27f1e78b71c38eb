package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/promptkeep/assets"
	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/pkg/filesystem"
	"github.com/doeshing/promptkeep/internal/ports"
)

// ConfigEnvVar overrides the config file location.
const ConfigEnvVar = "PROMPTKEEP_CONFIG"

// GlobalOverridesEnvVar overrides the global override layer location.
const GlobalOverridesEnvVar = "PROMPTKEEP_GLOBAL_OVERRIDES"

// FileLoader loads YAML configuration from <root>/.promptkeep/config.yaml (overridable via PROMPTKEEP_CONFIG).
type FileLoader struct {
	root         string
	overridePath string
}

// NewFileLoader builds a new loader for the project at root. path, when set, wins over everything.
func NewFileLoader(root, path string) *FileLoader {
	return &FileLoader{root: root, overridePath: path}
}

// Load implements ports.ConfigProvider. A missing file is created from the embedded defaults.
func (l *FileLoader) Load(ctx context.Context) (domain.Config, error) {
	path := l.Path()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg, err := DefaultConfig()
			if err != nil {
				return domain.Config{}, err
			}
			if err := l.write(ctx, path, cfg); err != nil {
				return domain.Config{}, err
			}
			return cfg, nil
		}
		return domain.Config{}, errors.Wrapf(err, "read config %s", path)
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, errors.WithHint(
			errors.Wrapf(err, "parse config %s", path),
			"fix the YAML syntax or delete the file to regenerate defaults")
	}
	return hydrateDefaults(cfg), nil
}

// Save implements ports.ConfigSaver. The config is validated before it is written.
func (l *FileLoader) Save(ctx context.Context, cfg domain.Config) error {
	if err := cfg.ValidateConsistency(); err != nil {
		return errors.Wrap(err, "refusing to save inconsistent config")
	}
	return l.write(ctx, l.Path(), cfg)
}

// Path returns the resolved config file path.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return filesystem.ExpandPath(l.overridePath)
	}
	if custom := os.Getenv(ConfigEnvVar); custom != "" {
		return filesystem.ExpandPath(custom)
	}
	return filepath.Join(filesystem.StateDir(l.root), domain.ConfigFileName)
}

// OverridePaths returns the global, user and project override layer paths,
// applying defaults for unset entries.
func (l *FileLoader) OverridePaths(cfg domain.Config) (global, user, project string) {
	global = cfg.Overrides.Global
	if global == "" {
		global = os.Getenv(GlobalOverridesEnvVar)
	}
	if global == "" {
		global = filepath.Join("/etc", "promptkeep", domain.OverridesFileName)
	}
	user = cfg.Overrides.User
	if user == "" {
		user = filepath.Join(filesystem.UserHomeDir(), domain.ProjectDirName, domain.OverridesFileName)
	}
	project = cfg.Overrides.Project
	if project == "" {
		project = filepath.Join(filesystem.StateDir(l.root), domain.OverridesFileName)
	} else if !filepath.IsAbs(project) && !strings.HasPrefix(project, "~") {
		project = filepath.Join(l.root, project)
	}
	return filesystem.ExpandPath(global), filesystem.ExpandPath(user), filesystem.ExpandPath(project)
}

// IndexPath returns the advisory index location.
func (l *FileLoader) IndexPath(cfg domain.Config) string {
	if cfg.Index.Path != "" {
		return filesystem.ExpandPath(cfg.Index.Path)
	}
	return filepath.Join(filesystem.StateDir(l.root), domain.IndexFileName)
}

func (l *FileLoader) write(ctx context.Context, path string, cfg domain.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	return filesystem.WriteFileAtomic(ctx, path, raw, domain.FilePermissions)
}

// DefaultConfig decodes the embedded default configuration.
func DefaultConfig() (domain.Config, error) {
	var cfg domain.Config
	if err := yaml.Unmarshal(assets.DefaultConfigYAML, &cfg); err != nil {
		return domain.Config{}, errors.Wrap(err, "decode embedded default config")
	}
	return hydrateDefaults(cfg), nil
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	if cfg.Preferences.DefaultModel == "" && len(cfg.Models) > 0 {
		cfg.Preferences.DefaultModel = cfg.Models[0].Name
	}
	if cfg.Storage.VersionWidth <= 0 {
		cfg.Storage.VersionWidth = domain.DefaultVersionWidth
	}
	for i := range cfg.Models {
		if cfg.Models[i].MaxTokens == 0 {
			cfg.Models[i].MaxTokens = domain.DefaultMaxTokens
		}
	}
	return cfg
}

var (
	_ ports.ConfigProvider = (*FileLoader)(nil)
	_ ports.ConfigSaver    = (*FileLoader)(nil)
)
