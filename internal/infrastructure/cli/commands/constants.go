package commands

// Defaults for command flags
const (
	DefaultListSort    = "updated"
	DefaultSearchLimit = 20
	DefaultFindLimit   = 3
)

// Error messages
const (
	ErrConfigLoaderUnavailable  = "config loader unavailable"
	ErrDoctorServiceUnavailable = "doctor service unavailable"
	ErrIndexDisabled            = "version index is disabled (index.enabled: false or failed to open)"
	ErrKeyRequired              = "--key is required"
	ErrNameRequired             = "--name is required"
	ErrTemplateRequired         = "--template or --template-file is required"
)

// Success messages
const (
	MsgCancelled                = "Cancelled."
	MsgConfigurationValid       = "Configuration valid"
	MsgNoDifferencesFromDefault = "No differences from default configuration."
	MsgNoPrompts                = "No prompts yet. Create one with 'promptkeep prompt create'."
	MsgNoVersions               = "No versions recorded yet."
	MsgNoMatches                = "No matching versions."
	MsgNoChanges                = "No differences."
)
