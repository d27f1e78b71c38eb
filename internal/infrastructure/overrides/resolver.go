// Package overrides resolves model formatting parameters from layered override files.
//
// Precedence is project > user > global > default, applied over the base
// parameters from the model registry. A layer replaces whole fields; nested
// values are never merged.
package overrides

import (
	"context"
	"sort"

	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/ports"
)

// Resolver combines base params with the layers a LayerSource returns.
type Resolver struct {
	source ports.LayerSource
	log    ports.Logger
}

// NewResolver creates a resolver. log may be nil.
func NewResolver(source ports.LayerSource, log ports.Logger) *Resolver {
	return &Resolver{source: source, log: log}
}

// Resolve returns the effective params for modelID. Broken layers are skipped
// and returned in Resolution.Warnings; they never abort resolution.
func (r *Resolver) Resolve(ctx context.Context, modelID string, base map[string]interface{}) domain.Resolution {
	layers, warnings := r.source.Layers(ctx, modelID)
	res := Merge(modelID, base, layers)
	res.Warnings = append(res.Warnings, warnings...)
	if r.log != nil {
		for _, w := range warnings {
			r.log.Warn("override layer skipped", map[string]interface{}{"model": modelID, "error": w.Error()})
		}
	}
	return res
}

// Merge applies layers over base in precedence order regardless of input order.
// Layers for other models are ignored.
func Merge(modelID string, base map[string]interface{}, layers []domain.OverrideLayer) domain.Resolution {
	res := domain.Resolution{
		ModelID: modelID,
		Params:  make(map[string]interface{}, len(base)),
		Sources: map[string]domain.Scope{},
	}
	for k, v := range base {
		res.Params[k] = v
	}

	ordered := make([]domain.OverrideLayer, 0, len(layers))
	for _, l := range layers {
		if l.ModelID == modelID && l.Scope.Valid() {
			ordered = append(ordered, l)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Scope.Rank() < ordered[j].Scope.Rank() })

	for _, l := range ordered {
		for field, value := range l.Fields {
			res.Params[field] = value
			res.Sources[field] = l.Scope
		}
	}
	return res
}

var _ ports.ParamResolver = (*Resolver)(nil)
