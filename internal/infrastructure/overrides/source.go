package overrides

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/ports"
)

// LayerFile is one scope's override document: a mapping of model id to fields.
// Data, when set, is used instead of reading Path (embedded defaults).
type LayerFile struct {
	Scope domain.Scope
	Path  string
	Data  []byte
}

// FileSource loads override layers from YAML or TOML documents.
// Files are re-read on every call so edits take effect immediately.
type FileSource struct {
	files []LayerFile
}

// NewFileSource builds a source over the given layer files.
func NewFileSource(files ...LayerFile) *FileSource {
	sorted := append([]LayerFile(nil), files...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Scope.Rank() < sorted[j].Scope.Rank() })
	return &FileSource{files: sorted}
}

// Layers returns the layers that define fields for modelID, lowest precedence
// first. A missing file is an absent layer; an unreadable or malformed one is
// skipped and reported as a *domain.ConfigError.
func (s *FileSource) Layers(_ context.Context, modelID string) ([]domain.OverrideLayer, []error) {
	var (
		layers   []domain.OverrideLayer
		warnings []error
	)
	for _, f := range s.files {
		if !f.Scope.Valid() {
			warnings = append(warnings, &domain.ConfigError{Scope: f.Scope, Path: f.Path, Err: errors.Newf("unknown scope %q", f.Scope)})
			continue
		}
		doc, present, err := f.load()
		if err != nil {
			warnings = append(warnings, &domain.ConfigError{Scope: f.Scope, Path: f.describe(), Err: err})
			continue
		}
		if !present {
			continue
		}
		fields, ok := doc[modelID]
		if !ok {
			continue
		}
		layers = append(layers, domain.OverrideLayer{Scope: f.Scope, ModelID: modelID, Fields: fields})
	}
	return layers, warnings
}

// Files returns the configured layer files in precedence order.
func (s *FileSource) Files() []LayerFile {
	return append([]LayerFile(nil), s.files...)
}

func (f LayerFile) describe() string {
	if f.Path != "" {
		return f.Path
	}
	return "<embedded>"
}

func (f LayerFile) load() (map[string]map[string]interface{}, bool, error) {
	data := f.Data
	if data == nil {
		if f.Path == "" {
			return nil, false, nil
		}
		raw, err := os.ReadFile(f.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, false, nil
			}
			return nil, false, errors.Wrap(err, "read layer")
		}
		data = raw
	}
	doc, err := decode(f.Path, data)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// decode parses a layer document, choosing TOML for .toml paths and YAML otherwise.
func decode(path string, data []byte) (map[string]map[string]interface{}, error) {
	raw := map[string]interface{}{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, errors.Wrap(err, "parse toml")
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, "parse yaml")
		}
	}

	doc := make(map[string]map[string]interface{}, len(raw))
	for model, v := range raw {
		if v == nil {
			doc[model] = map[string]interface{}{}
			continue
		}
		fields, ok := v.(map[string]interface{})
		if !ok {
			return nil, errors.Newf("model %q: expected a mapping of fields, got %T", model, v)
		}
		doc[model] = fields
	}
	return doc, nil
}

// StaticSource serves in-memory layers, for registries that hold overrides in
// memory rather than in files.
type StaticSource []domain.OverrideLayer

// Layers implements ports.LayerSource.
func (s StaticSource) Layers(_ context.Context, modelID string) ([]domain.OverrideLayer, []error) {
	var layers []domain.OverrideLayer
	var warnings []error
	for _, l := range s {
		if l.ModelID != modelID {
			continue
		}
		if !l.Scope.Valid() {
			warnings = append(warnings, &domain.ConfigError{Scope: l.Scope, Path: "<memory>", Err: errors.Newf("unknown scope %q", l.Scope)})
			continue
		}
		layers = append(layers, l)
	}
	sort.SliceStable(layers, func(i, j int) bool { return layers[i].Scope.Rank() < layers[j].Scope.Rank() })
	return layers, warnings
}

var (
	_ ports.LayerSource = (*FileSource)(nil)
	_ ports.LayerSource = StaticSource(nil)
)
