package domain

import (
	"fmt"
	"strings"
)

// GetDefaultModel retrieves the default model definition from configuration
// Returns an error if the default model is not found
func (c *Config) GetDefaultModel() (ModelDefinition, error) {
	if c.Preferences.DefaultModel == "" {
		return ModelDefinition{}, NotFoundf("no default model configured")
	}

	for _, model := range c.Models {
		if model.Name == c.Preferences.DefaultModel {
			return model, nil
		}
	}

	return ModelDefinition{}, NotFoundf("default model %s in configuration", c.Preferences.DefaultModel)
}

// FindModelByName searches for a model by its name
// Returns the model definition and true if found, empty model and false otherwise
func (c *Config) FindModelByName(name string) (ModelDefinition, bool) {
	for _, model := range c.Models {
		if model.Name == name {
			return model, true
		}
	}
	return ModelDefinition{}, false
}

// HasModel checks if a model with the given name exists in the configuration
func (c *Config) HasModel(name string) bool {
	_, exists := c.FindModelByName(name)
	return exists
}

// AddModel adds a new model to the registry
// Returns an error if a model with the same name already exists or the definition is invalid
func (c *Config) AddModel(model ModelDefinition) error {
	if err := model.Validate(); err != nil {
		return err
	}
	if c.HasModel(model.Name) {
		return fmt.Errorf("model with name %s already exists", model.Name)
	}

	c.Models = append(c.Models, model)
	if c.Preferences.DefaultModel == "" {
		c.Preferences.DefaultModel = model.Name
	}
	return nil
}

// RemoveModel removes a model from the registry by name
// Automatically updates the default model if necessary
func (c *Config) RemoveModel(name string) error {
	indexToRemove := -1
	for i, model := range c.Models {
		if model.Name == name {
			indexToRemove = i
			break
		}
	}

	if indexToRemove == -1 {
		return NotFoundf("model %s", name)
	}

	c.Models = append(c.Models[:indexToRemove], c.Models[indexToRemove+1:]...)

	if c.Preferences.DefaultModel == name {
		c.updateDefaultModelAfterRemoval()
	}
	return nil
}

// updateDefaultModelAfterRemoval selects a new default model after the current one is removed
func (c *Config) updateDefaultModelAfterRemoval() {
	if len(c.Models) > 0 {
		c.Preferences.DefaultModel = c.Models[0].Name
	} else {
		c.Preferences.DefaultModel = ""
	}
}

// SetDefaultModel changes the default model to the specified name
// Returns an error if the model doesn't exist
func (c *Config) SetDefaultModel(name string) error {
	if !c.HasModel(name) {
		return NotFoundf("cannot set default model: model %s", name)
	}

	c.Preferences.DefaultModel = name
	return nil
}

// ModelFor picks the model for a prompt: its preferred model when set, else the default.
func (c *Config) ModelFor(rec PromptRecord) (ModelDefinition, error) {
	if rec.PreferredModel != "" {
		model, ok := c.FindModelByName(rec.PreferredModel)
		if !ok {
			return ModelDefinition{}, NotFoundf("preferred model %s of prompt %d in registry", rec.PreferredModel, rec.ID)
		}
		return model, nil
	}
	return c.GetDefaultModel()
}

// IsAutoVersionEnabled reports whether mutations record snapshots. Defaults to true.
func (c *Config) IsAutoVersionEnabled() bool {
	if c.Preferences.AutoVersion == nil {
		return true
	}
	return *c.Preferences.AutoVersion
}

// IsIndexEnabled reports whether the advisory index is maintained. Defaults to true.
func (c *Config) IsIndexEnabled() bool {
	if c.Index.Enabled == nil {
		return true
	}
	return *c.Index.Enabled
}

// GetVersionWidth returns the minimum zero-padded width for version file names.
func (c *Config) GetVersionWidth() int {
	if c.Storage.VersionWidth <= 0 {
		return DefaultVersionWidth
	}
	return c.Storage.VersionWidth
}

// ValidateConsistency checks the internal consistency of the configuration
func (c *Config) ValidateConsistency() error {
	if c.Preferences.DefaultModel != "" && !c.HasModel(c.Preferences.DefaultModel) {
		return fmt.Errorf("default model %s does not exist in models list", c.Preferences.DefaultModel)
	}

	seen := make(map[string]bool, len(c.Models))
	for _, model := range c.Models {
		if err := model.Validate(); err != nil {
			return err
		}
		if seen[model.Name] {
			return fmt.Errorf("duplicate model name %s", model.Name)
		}
		seen[model.Name] = true
	}
	return nil
}

// Validate checks a single model definition.
func (m ModelDefinition) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("model name is required")
	}
	if m.Temperature < 0 || m.Temperature > MaxTemperature {
		return fmt.Errorf("model %s: temperature %.2f out of range [0, %.1f]", m.Name, m.Temperature, MaxTemperature)
	}
	if m.MaxTokens < 0 {
		return fmt.Errorf("model %s: max_tokens must not be negative", m.Name)
	}
	return nil
}
