package template

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/promptkeep/internal/domain"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		vars map[string]interface{}
		want string
	}{
		{
			name: "single placeholder",
			tmpl: "Hello {name}!",
			vars: map[string]interface{}{"name": "Ana"},
			want: "Hello Ana!",
		},
		{
			name: "repeated and multiple placeholders",
			tmpl: "Hi {name}, welcome to {place}. Bye {name}.",
			vars: map[string]interface{}{"name": "Ana", "place": "Lisbon"},
			want: "Hi Ana, welcome to Lisbon. Bye Ana.",
		},
		{
			name: "extra variables are ignored",
			tmpl: "{a}",
			vars: map[string]interface{}{"a": 1, "b": 2},
			want: "1",
		},
		{
			name: "non identifier braces are literal",
			tmpl: `{"key": {v}} { } {1x} {}`,
			vars: map[string]interface{}{"v": true},
			want: `{"key": true} { } {1x} {}`,
		},
		{
			name: "values are not re-expanded",
			tmpl: "{a} {b}",
			vars: map[string]interface{}{"a": "{b}", "b": "x"},
			want: "{b} x",
		},
		{
			name: "no placeholders",
			tmpl: "plain text",
			vars: nil,
			want: "plain text",
		},
		{
			name: "doubled braces are escapes",
			tmpl: "JSON: {{name}} for {name}",
			vars: map[string]interface{}{"name": "Ana"},
			want: "JSON: {name} for Ana",
		},
		{
			name: "escaped braces need no binding",
			tmpl: "literal {{name}}",
			vars: map[string]interface{}{},
			want: "literal {name}",
		},
		{
			name: "escape around a placeholder",
			tmpl: "{{{name}}}",
			vars: map[string]interface{}{"name": "Ana"},
			want: "{Ana}",
		},
		{
			name: "lone closing escape",
			tmpl: `{"a": 1}} done`,
			vars: nil,
			want: `{"a": 1} done`,
		},
		{
			name: "unterminated brace",
			tmpl: "open {name",
			vars: nil,
			want: "open {name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.tmpl, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderMissingVariable(t *testing.T) {
	_, err := Render("Hi {name}, welcome to {place}!", map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingVariable))

	var mv *domain.MissingVariableError
	require.True(t, errors.As(err, &mv))
	assert.Equal(t, "name", mv.Name)

	assert.Equal(t, []string{"place"}, Missing("Hi {name}, welcome to {place}!", map[string]interface{}{"name": "x"}))
}

func TestRerenderIsNoOp(t *testing.T) {
	out, err := Render("Hello {name}!", map[string]interface{}{"name": "Ana"})
	require.NoError(t, err)

	again, err := Render(out, map[string]interface{}{"name": "Bob"})
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestPlaceholdersOrder(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "_c9"}, Placeholders("{b}{a}{b} {_c9} {9z}"))
	assert.Empty(t, Placeholders("none here"))
	assert.Equal(t, []string{"real"}, Placeholders("{{escaped}} {real}"))
}
