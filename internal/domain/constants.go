package domain

import (
	"strconv"
	"time"
)

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// FilePermissions is the permission for records, snapshots and the counter (rw-r--r--)
	FilePermissions = 0o644
)

// Layout constants
const (
	// ProjectDirName is the directory holding all persisted state
	ProjectDirName = ".promptkeep"
	// PromptsDirName holds one current-state file per prompt
	PromptsDirName = "prompts"
	// VersionsDirName holds one directory of snapshots per prompt
	VersionsDirName = "versions"
	// CounterFileName holds the last issued prompt id
	CounterFileName = "counter"
	// ConfigFileName is the project configuration file
	ConfigFileName = "config.yaml"
	// OverridesFileName is the default name for override layer files
	OverridesFileName = "overrides.yaml"
	// IndexFileName is the advisory sqlite version index
	IndexFileName = "index.db"
	// DefaultVersionWidth is the minimum zero-padded width of version file names
	DefaultVersionWidth = 3
)

// Model configuration constants
const (
	// DefaultMaxTokens is the default maximum number of tokens
	DefaultMaxTokens = 1024
	// DefaultTemperature is the default sampling temperature
	DefaultTemperature = 0.7
	// MaxTemperature bounds model temperature
	MaxTemperature = 2.0
)

// Optimization constants
const (
	// DefaultStrategy is the optimizer strategy used when none is named
	DefaultStrategy = "few_shot"
	// DefaultFewShotExamples caps the examples the few_shot strategy inlines
	DefaultFewShotExamples = 3
	// DatasetFileName is the default dataset under the project directory
	DatasetFileName = "dataset.jsonl"
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
	// DisplayTimeFormat is used by the CLI tables
	DisplayTimeFormat = "2006-01-02 15:04:05"
)

// RestoreMessage is the message recorded on versions created by a restore.
func RestoreMessage(version int) string {
	return "Restored from version " + strconv.Itoa(version)
}
