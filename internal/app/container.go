package app

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/doeshing/promptkeep/assets"
	"github.com/doeshing/promptkeep/internal/application/doctor"
	"github.com/doeshing/promptkeep/internal/application/prompts"
	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/infrastructure/config"
	"github.com/doeshing/promptkeep/internal/infrastructure/history"
	"github.com/doeshing/promptkeep/internal/infrastructure/optimizer"
	"github.com/doeshing/promptkeep/internal/infrastructure/overrides"
	"github.com/doeshing/promptkeep/internal/infrastructure/records"
	"github.com/doeshing/promptkeep/internal/infrastructure/template"
	"github.com/doeshing/promptkeep/internal/pkg/filesystem"
	"github.com/doeshing/promptkeep/internal/pkg/logger"
	"github.com/doeshing/promptkeep/internal/ports"
)

// Options controls how the container locates the project and logs.
type Options struct {
	// Root is the project directory. Empty means discover from the working directory.
	Root       string
	ConfigPath string
	Verbose    bool
	JSONLogs   bool
	Logger     *logger.ZapLogger
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	Root           string
	Config         domain.Config
	ConfigProvider ports.ConfigProvider
	ConfigLoader   *config.FileLoader
	Counter        *records.Counter
	Records        *records.FileStore
	Versions       *history.FileStore
	Index          ports.VersionIndex
	Layers         *overrides.FileSource
	Resolver       *overrides.Resolver
	Optimizer      *optimizer.Local
	Prompts        *prompts.Service
	DoctorService  *doctor.Service
	Logger         *logger.ZapLogger
}

// BuildContainer constructs the dependency graph for an existing project.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	root := opts.Root
	if root == "" {
		found, err := filesystem.FindProjectRoot("")
		if err != nil {
			return nil, err
		}
		root = found
	} else if err := filesystem.RequireProject(root); err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logger.New(logger.Options{Verbose: opts.Verbose, JSON: opts.JSONLogs})
	}

	cfgLoader := config.NewFileLoader(root, opts.ConfigPath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	state := filesystem.StateDir(root)
	counter := records.NewCounter(filepath.Join(state, domain.CounterFileName))
	recordStore := records.NewFileStore(filepath.Join(state, domain.PromptsDirName), counter)
	versionStore := history.NewFileStore(filepath.Join(state, domain.VersionsDirName), cfg.GetVersionWidth())

	var index ports.VersionIndex
	if cfg.IsIndexEnabled() {
		path := cfgLoader.IndexPath(cfg)
		idx, err := history.OpenSQLiteIndex(path)
		if err != nil {
			// the index is advisory; history keeps working from the files
			log.Warn("version index disabled", map[string]interface{}{"path": path, "error": err.Error()})
		} else {
			index = idx
			versionStore = versionStore.WithIndex(idx, log)
		}
	}

	global, user, project := cfgLoader.OverridePaths(cfg)
	layers := overrides.NewFileSource(
		overrides.LayerFile{Scope: domain.ScopeDefault, Path: "defaults/overrides.yaml", Data: assets.DefaultOverridesYAML},
		overrides.LayerFile{Scope: domain.ScopeGlobal, Path: global},
		overrides.LayerFile{Scope: domain.ScopeUser, Path: user},
		overrides.LayerFile{Scope: domain.ScopeProject, Path: project},
	)
	resolver := overrides.NewResolver(layers, log)
	opt := optimizer.NewLocal()

	service := &prompts.Service{
		ConfigProvider: cfgLoader,
		Records:        recordStore,
		Versions:       versionStore,
		Renderer:       template.Renderer{},
		Resolver:       resolver,
		Optimizer:      opt,
		Logger:         log,
	}

	doctorService := &doctor.Service{
		ConfigProvider: cfgLoader,
		Counter:        counter,
		Records:        recordStore,
		Versions:       versionStore,
		Prompts:        service,
		Index:          index,
	}

	log.Debug("container ready", map[string]interface{}{"root": root, "index": index != nil})

	return &Container{
		Root:           root,
		Config:         cfg,
		ConfigProvider: cfgLoader,
		ConfigLoader:   cfgLoader,
		Counter:        counter,
		Records:        recordStore,
		Versions:       versionStore,
		Index:          index,
		Layers:         layers,
		Resolver:       resolver,
		Optimizer:      opt,
		Prompts:        service,
		DoctorService:  doctorService,
		Logger:         log,
	}, nil
}

// DatasetPath returns the default optimization dataset location.
func (c *Container) DatasetPath() string {
	return filepath.Join(filesystem.StateDir(c.Root), domain.DatasetFileName)
}

// Close releases the index and flushes the logger.
func (c *Container) Close() error {
	var err error
	if c.Index != nil {
		err = c.Index.Close()
	}
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
	return err
}

// InitProject creates the .promptkeep layout under root and writes the default
// config when none exists. It is safe to run on an initialized project.
func InitProject(ctx context.Context, root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrap(err, "resolve project root")
	}
	state := filesystem.StateDir(abs)
	for _, dir := range []string{state, filepath.Join(state, domain.PromptsDirName), filepath.Join(state, domain.VersionsDirName)} {
		if err := os.MkdirAll(dir, domain.DirectoryPermissions); err != nil {
			return "", domain.NewIOFailure("mkdir", dir, err)
		}
	}
	if _, err := config.NewFileLoader(abs, "").Load(ctx); err != nil {
		return "", err
	}
	return state, nil
}
