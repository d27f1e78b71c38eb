package domain

// Config mirrors <project>/.promptkeep/config.yaml.
type Config struct {
	ConfigFormatVersion string            `yaml:"config_format_version"`
	Preferences         Preferences       `yaml:"preferences"`
	Storage             StorageSettings   `yaml:"storage"`
	Models              []ModelDefinition `yaml:"models"`
	Overrides           OverrideSettings  `yaml:"overrides"`
	Index               IndexSettings     `yaml:"index"`
}

// Preferences captures project level toggles.
type Preferences struct {
	DefaultModel string `yaml:"default_model"`
	AutoVersion  *bool  `yaml:"auto_version,omitempty"`
}

// StorageSettings controls the on-disk layout.
type StorageSettings struct {
	VersionWidth int `yaml:"version_width"`
}

// OverrideSettings points at the override layer files. Empty paths fall back to defaults.
type OverrideSettings struct {
	Global  string `yaml:"global,omitempty"`
	User    string `yaml:"user,omitempty"`
	Project string `yaml:"project,omitempty"`
}

// IndexSettings toggles the advisory version index.
type IndexSettings struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
}
