// Package template substitutes {name} placeholders in prompt templates.
//
// Substitution is a single literal pass: substituted values are never scanned
// again and nothing inside braces is evaluated. "{{" and "}}" render as a
// single literal brace. Other braces that do not enclose an identifier
// (JSON bodies, "{ }", "{1}") are plain text.
package template

import (
	"fmt"
	"strings"

	"github.com/doeshing/promptkeep/internal/domain"
)

// Placeholders returns the unique placeholder names in order of first appearance.
func Placeholders(tmpl string) []string {
	var names []string
	seen := map[string]bool{}
	scan(tmpl, func(_, _ int, name, _ string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	})
	return names
}

// Missing lists every placeholder without a binding, in order of first appearance.
func Missing(tmpl string, vars map[string]interface{}) []string {
	var missing []string
	for _, name := range Placeholders(tmpl) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Render replaces every placeholder with its value. The first unbound
// placeholder yields a *domain.MissingVariableError; extra variables are ignored.
func Render(tmpl string, vars map[string]interface{}) (string, error) {
	if missing := Missing(tmpl, vars); len(missing) > 0 {
		return "", &domain.MissingVariableError{Name: missing[0]}
	}

	var b strings.Builder
	b.Grow(len(tmpl))
	last := 0
	scan(tmpl, func(start, end int, name, literal string) {
		b.WriteString(tmpl[last:start])
		if name == "" {
			b.WriteString(literal)
		} else {
			b.WriteString(format(vars[name]))
		}
		last = end
	})
	b.WriteString(tmpl[last:])
	return b.String(), nil
}

// scan calls fn for each placeholder or brace escape with its byte span
// [start, end). Placeholders carry a name; escapes carry the literal brace.
func scan(tmpl string, fn func(start, end int, name, literal string)) {
	for i := 0; i < len(tmpl); {
		c := tmpl[i]
		if (c == '{' || c == '}') && i+1 < len(tmpl) && tmpl[i+1] == c {
			fn(i, i+2, "", string(c))
			i += 2
			continue
		}
		if c != '{' {
			i++
			continue
		}
		j := i + 1
		for j < len(tmpl) && isIdentByte(tmpl[j], j == i+1) {
			j++
		}
		if j == i+1 || j >= len(tmpl) || tmpl[j] != '}' {
			i++
			continue
		}
		fn(i, j+1, tmpl[i+1:j], "")
		i = j + 1
	}
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}

func format(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// Renderer adapts the package functions to ports.TemplateRenderer.
type Renderer struct{}

// Placeholders implements ports.TemplateRenderer.
func (Renderer) Placeholders(tmpl string) []string { return Placeholders(tmpl) }

// Render implements ports.TemplateRenderer.
func (Renderer) Render(tmpl string, vars map[string]interface{}) (string, error) {
	return Render(tmpl, vars)
}
