package domain

// ModelDefinition describes a language model entry in the project registry.
type ModelDefinition struct {
	Name        string                 `yaml:"name"`
	Provider    string                 `yaml:"provider"`
	Model       string                 `yaml:"model"`
	APIKeyEnv   string                 `yaml:"api_key_env,omitempty"`
	Temperature float64                `yaml:"temperature"`
	MaxTokens   int                    `yaml:"max_tokens"`
	Metadata    map[string]interface{} `yaml:"metadata,omitempty"`
}

// BaseParams returns the formatting parameters the registry declares for the
// model. Override layers are applied on top of these.
func (m ModelDefinition) BaseParams() map[string]interface{} {
	params := make(map[string]interface{}, len(m.Metadata)+2)
	for k, v := range m.Metadata {
		params[k] = v
	}
	params["temperature"] = m.Temperature
	params["max_tokens"] = m.MaxTokens
	return params
}

// ModelID is the key override layers use for this model.
func (m ModelDefinition) ModelID() string {
	if m.Model != "" {
		return m.Model
	}
	return m.Name
}
