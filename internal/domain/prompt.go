// Package domain defines core entities and value objects for promptkeep.
//
// The domain layer is independent of storage and presentation concerns:
// prompt records, version snapshots, override layers, configuration and the
// error taxonomy shared by every adapter.
package domain

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// PromptRecord is the current state of a named prompt template.
type PromptRecord struct {
	ID             int                    `json:"id"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	Template       string                 `json:"template"`
	Tags           []string               `json:"tags"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	PreferredModel string                 `json:"model_name,omitempty"`
	Metadata       map[string]interface{} `json:"metadata"`
}

// Clone returns a deep copy of the record so callers can mutate freely.
func (p PromptRecord) Clone() PromptRecord {
	out := p
	out.Tags = append([]string(nil), p.Tags...)
	out.Metadata = cloneMap(p.Metadata)
	return out
}

// Normalize turns tags into a sorted set and guarantees non-nil collections.
func (p *PromptRecord) Normalize() {
	p.Tags = NormalizeTags(p.Tags)
	if p.Metadata == nil {
		p.Metadata = map[string]interface{}{}
	}
}

// HasTag reports whether the record carries the tag.
func (p PromptRecord) HasTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SameContent compares everything a snapshot captures except timestamps.
func (p PromptRecord) SameContent(other PromptRecord) bool {
	if p.ID != other.ID || p.Name != other.Name || p.Description != other.Description ||
		p.Template != other.Template || p.PreferredModel != other.PreferredModel {
		return false
	}
	a, b := NormalizeTags(p.Tags), NormalizeTags(other.Tags)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return sameMetadata(p.Metadata, other.Metadata)
}

// NormalizeTags trims, de-duplicates and sorts tags.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// PromptDraft carries the caller-supplied fields for a new prompt.
type PromptDraft struct {
	Name           string
	Description    string
	Template       string
	Tags           []string
	PreferredModel string
	Metadata       map[string]interface{}
}

// ToRecord builds an unsaved record from the draft.
func (d PromptDraft) ToRecord() PromptRecord {
	rec := PromptRecord{
		Name:           strings.TrimSpace(d.Name),
		Description:    d.Description,
		Template:       d.Template,
		Tags:           d.Tags,
		PreferredModel: d.PreferredModel,
		Metadata:       cloneMap(d.Metadata),
	}
	rec.Normalize()
	return rec
}

// SortKey selects the ordering of List results.
type SortKey string

const (
	SortNone    SortKey = ""
	SortByID    SortKey = "id"
	SortByName  SortKey = "name"
	SortUpdated SortKey = "updated"
	SortCreated SortKey = "created"
)

// ListOptions filters and orders record listings.
type ListOptions struct {
	Tag    string
	SortBy SortKey
}

// SortRecords orders records in place by key. Updated and created sort newest first.
func SortRecords(records []PromptRecord, key SortKey) {
	switch key {
	case SortByID:
		sort.SliceStable(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	case SortByName:
		sort.SliceStable(records, func(i, j int) bool {
			if records[i].Name == records[j].Name {
				return records[i].ID < records[j].ID
			}
			return records[i].Name < records[j].Name
		})
	case SortUpdated:
		sort.SliceStable(records, func(i, j int) bool { return records[i].UpdatedAt.After(records[j].UpdatedAt) })
	case SortCreated:
		sort.SliceStable(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
	}
}

func cloneMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// UnmarshalJSON reads records with RFC 3339 or zone-less ISO timestamps.
// model_config is accepted as an alias of model_name.
func (p *PromptRecord) UnmarshalJSON(data []byte) error {
	type plain PromptRecord
	aux := struct {
		*plain
		CreatedAt   Timestamp `json:"created_at"`
		UpdatedAt   Timestamp `json:"updated_at"`
		ModelConfig string    `json:"model_config"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.CreatedAt = aux.CreatedAt.Time
	p.UpdatedAt = aux.UpdatedAt.Time
	if p.PreferredModel == "" {
		p.PreferredModel = aux.ModelConfig
	}
	return nil
}
