package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     map[string]any
		expected string
	}{
		{
			name:     "simple string substitution",
			template: "Hello {{name}}",
			vars:     map[string]any{"name": "Alice"},
			expected: "Hello Alice",
		},
		{
			name:     "repeated placeholder substituted everywhere",
			template: "{{name}} and {{name}} again",
			vars:     map[string]any{"name": "Bob"},
			expected: "Bob and Bob again",
		},
		{
			name:     "unmatched placeholder left verbatim",
			template: "Hello {{name}}, welcome to {{company}}",
			vars:     map[string]any{"name": "Alice"},
			expected: "Hello Alice, welcome to {{company}}",
		},
		{
			name:     "whitespace inside braces tolerated",
			template: "Hello {{ name }}",
			vars:     map[string]any{"name": "Alice"},
			expected: "Hello Alice",
		},
		{
			name:     "string slice joined with comma",
			template: "Features: {{features}}",
			vars:     map[string]any{"features": []string{"a", "b"}},
			expected: "Features: a, b",
		},
		{
			name:     "any slice of strings joined with comma",
			template: "Features: {{features}}",
			vars:     map[string]any{"features": []any{"fast", "cheap"}},
			expected: "Features: fast, cheap",
		},
		{
			name:     "mixed slice rendered as JSON",
			template: "Data: {{data}}",
			vars:     map[string]any{"data": []any{"a", 1}},
			expected: `Data: ["a",1]`,
		},
		{
			name:     "object rendered as JSON",
			template: "Config: {{config}}",
			vars:     map[string]any{"config": map[string]any{"k": "v"}},
			expected: `Config: {"k":"v"}`,
		},
		{
			name:     "number rendered as JSON",
			template: "Count: {{count}}",
			vars:     map[string]any{"count": 42},
			expected: "Count: 42",
		},
		{
			name:     "boolean rendered as JSON",
			template: "Enabled: {{enabled}}",
			vars:     map[string]any{"enabled": true},
			expected: "Enabled: true",
		},
		{
			name:     "nil rendered as JSON null",
			template: "Value: {{value}}",
			vars:     map[string]any{"value": nil},
			expected: "Value: null",
		},
		{
			name:     "no variables returns template unchanged",
			template: "Hello {{name}}",
			vars:     nil,
			expected: "Hello {{name}}",
		},
		{
			name:     "template without placeholders untouched",
			template: "Plain text",
			vars:     map[string]any{"name": "Alice"},
			expected: "Plain text",
		},
		{
			name:     "dotted and dashed names allowed",
			template: "{{user.first-name}}",
			vars:     map[string]any{"user.first-name": "Ada"},
			expected: "Ada",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Substitute(tt.template, tt.vars))
		})
	}
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		name     string
		template string
		expected []string
	}{
		{
			name:     "ordered by first occurrence",
			template: "{{b}} then {{a}} then {{c}}",
			expected: []string{"b", "a", "c"},
		},
		{
			name:     "duplicates collapsed",
			template: "{{name}} {{name}} {{other}}",
			expected: []string{"name", "other"},
		},
		{
			name:     "no placeholders",
			template: "plain",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Placeholders(tt.template))
		})
	}
}
