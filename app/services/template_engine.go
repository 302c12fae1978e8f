// Package services provides external provider clients and supporting services for generation
package services

import (
	"encoding/json"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}`)

// Substitute replaces every {{name}} placeholder in template with the string
// form of vars["name"]. Placeholders with no matching key are left verbatim.
// Pure function, no side effects.
//
// Coercion per value: a string passes through unchanged; an array whose every
// element is a string is joined with ", "; everything else (numbers, booleans,
// null, objects, mixed arrays) becomes its canonical JSON text.
func Substitute(template string, vars map[string]any) string {
	if len(vars) == 0 {
		return template
	}

	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := vars[name]
		if !ok {
			return match
		}
		return coerceValue(value)
	})
}

// Placeholders returns the distinct placeholder names in template, in order
// of first occurrence.
func Placeholders(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		name := match[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	return names
}

func coerceValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, ", ")
	case []any:
		if joined, ok := joinStringSlice(v); ok {
			return joined
		}
	}

	serialized, err := json.Marshal(value)
	if err != nil {
		// json.Marshal only fails on unsupported types (chan, func); render
		// nothing rather than panic in the middle of a prompt.
		return ""
	}
	return string(serialized)
}

// joinStringSlice joins v with ", " when every element is a string.
func joinStringSlice(v []any) (string, bool) {
	parts := make([]string, len(v))
	for i, item := range v {
		s, ok := item.(string)
		if !ok {
			return "", false
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), true
}
