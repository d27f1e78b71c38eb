package assets

import (
	_ "embed"
)

// DefaultConfigYAML contains the embedded default project configuration.
//
//go:embed defaults/config.yaml
var DefaultConfigYAML []byte

// DefaultOverridesYAML contains the packaged default override layer.
//
//go:embed defaults/overrides.yaml
var DefaultOverridesYAML []byte
