package domain

// Scope identifies an override layer. Higher scopes win.
type Scope string

const (
	ScopeDefault Scope = "default"
	ScopeGlobal  Scope = "global"
	ScopeUser    Scope = "user"
	ScopeProject Scope = "project"
)

// ScopePrecedence lists scopes from lowest to highest precedence.
var ScopePrecedence = []Scope{ScopeDefault, ScopeGlobal, ScopeUser, ScopeProject}

// Rank returns the precedence of the scope, -1 when unknown.
func (s Scope) Rank() int {
	for i, sc := range ScopePrecedence {
		if sc == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the known scopes.
func (s Scope) Valid() bool {
	return s.Rank() >= 0
}

// OverrideLayer holds the fields one scope defines for one model.
// Fields are replaced whole; nested values are never merged.
type OverrideLayer struct {
	Scope   Scope                  `json:"scope" yaml:"scope"`
	ModelID string                 `json:"model_id" yaml:"model_id"`
	Fields  map[string]interface{} `json:"fields" yaml:"fields"`
}

// Resolution is the effective parameter set for a model plus where each field came from.
type Resolution struct {
	ModelID string
	Params  map[string]interface{}
	// Sources maps each field to the scope that supplied it; base params have no entry.
	Sources  map[string]Scope
	Warnings []error
}
