package helpers

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/promptkeep/internal/app"
	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/infrastructure/config"
)

// ====================================================================================
// Config Helpers
// ====================================================================================

// GetConfigLoader extracts the config loader from container with error handling
func GetConfigLoader(container *app.Container) (*config.FileLoader, error) {
	if container.ConfigLoader == nil {
		return nil, errors.New("config loader unavailable")
	}
	return container.ConfigLoader, nil
}

// SaveConfigWithValidation validates and saves configuration
func SaveConfigWithValidation(ctx context.Context, container *app.Container, cfg domain.Config) error {
	loader, err := GetConfigLoader(container)
	if err != nil {
		return err
	}
	if err := cfg.ValidateConsistency(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}
	if err := loader.Save(ctx, cfg); err != nil {
		return errors.Wrap(err, "failed to save configuration")
	}
	container.Config = cfg
	return nil
}

// ====================================================================================
// Value Helpers
// ====================================================================================

// ParseYAMLValue parses a string value as YAML, falling back to literal string
func ParseYAMLValue(input string) interface{} {
	var parsed interface{}
	if err := yaml.Unmarshal([]byte(input), &parsed); err != nil || parsed == nil {
		return input
	}
	return parsed
}

// ParseVars turns name=value pairs into template variables. Values stay strings.
func ParseVars(pairs []string) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	for _, pair := range pairs {
		key, value, err := splitAssignment(pair)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

// ParseMetadata turns key=value pairs into metadata. Values are parsed as YAML
// scalars and dotted keys build nested maps.
func ParseMetadata(pairs []string) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	for _, pair := range pairs {
		key, value, err := splitAssignment(pair)
		if err != nil {
			return nil, err
		}
		if !SetNestedMapValue(out, strings.Split(key, "."), ParseYAMLValue(value)) {
			return nil, domain.InvalidInputf("cannot set %q", key)
		}
	}
	return out, nil
}

func splitAssignment(pair string) (string, string, error) {
	key, value, ok := strings.Cut(pair, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", domain.InvalidInputf("expected key=value, got %q", pair)
	}
	return key, value, nil
}

// SetNestedMapValue sets a value in a nested map using a key path
// Returns true if successful, false otherwise
func SetNestedMapValue(root map[string]interface{}, keyPath []string, value interface{}) bool {
	if len(keyPath) == 0 {
		return false
	}

	current := root
	for i := 0; i < len(keyPath)-1; i++ {
		key := keyPath[i]
		next, exists := current[key]

		if !exists {
			newChild := map[string]interface{}{}
			current[key] = newChild
			current = newChild
			continue
		}

		child, isMap := next.(map[string]interface{})
		if !isMap {
			// Overwrite non-map value with new map
			child = map[string]interface{}{}
			current[key] = child
		}
		current = child
	}

	current[keyPath[len(keyPath)-1]] = value
	return true
}

// TraverseNestedMap retrieves a value from a nested map using a key path
// Returns the value and true if found, nil and false otherwise
func TraverseNestedMap(data interface{}, keyPath []string) (interface{}, bool) {
	if len(keyPath) == 0 {
		return data, true
	}

	switch node := data.(type) {
	case map[string]interface{}:
		next, exists := node[keyPath[0]]
		if !exists {
			return nil, false
		}
		return TraverseNestedMap(next, keyPath[1:])
	default:
		return nil, false
	}
}

// ConfigToMap converts the config to its YAML map form for key-path access.
func ConfigToMap(cfg domain.Config) (map[string]interface{}, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal config")
	}
	var cfgMap map[string]interface{}
	if err := yaml.Unmarshal(raw, &cfgMap); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal to map")
	}
	return cfgMap, nil
}

// MapToConfig converts a YAML map back into a validated config.
func MapToConfig(cfgMap map[string]interface{}) (domain.Config, error) {
	raw, err := yaml.Marshal(cfgMap)
	if err != nil {
		return domain.Config{}, errors.Wrap(err, "failed to marshal updated map")
	}
	var updated domain.Config
	if err := yaml.Unmarshal(raw, &updated); err != nil {
		return domain.Config{}, errors.Wrap(err, "failed to unmarshal to Config")
	}
	if err := updated.ValidateConsistency(); err != nil {
		return domain.Config{}, errors.Wrap(err, "validation failed")
	}
	return updated, nil
}

// FormatParam renders a param value on one line.
func FormatParam(v interface{}) string {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		raw, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return strings.TrimSpace(strings.ReplaceAll(string(raw), "\n", "; "))
	default:
		return fmt.Sprint(v)
	}
}
