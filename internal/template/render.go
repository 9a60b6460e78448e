// Package template renders {{variable}} placeholders in solver prompts.
package template

import (
	"fmt"
	"regexp"
)

// variablePattern matches {{variable}} placeholders and captures the name.
var variablePattern = regexp.MustCompile(`\{\{([a-zA-Z_][a-zA-Z0-9_]*)\}\}`)

// RenderPrompt substitutes {{variable}} placeholders in prompt with values
// from variables. Placeholders with no value are left as written. Values are
// inserted verbatim and never re-expanded.
func RenderPrompt(prompt string, variables map[string]string) string {
	if len(variables) == 0 {
		return prompt
	}

	return variablePattern.ReplaceAllStringFunc(prompt, func(match string) string {
		name := match[2 : len(match)-2]
		if value, ok := variables[name]; ok {
			return value
		}
		return match
	})
}

// MergeVariables merges built-in variables with user-provided ones.
// Built-ins win on collision so configuration cannot override the problem
// text itself.
func MergeVariables(builtins, userParams map[string]string) map[string]string {
	if len(builtins) == 0 && len(userParams) == 0 {
		return nil
	}

	result := make(map[string]string, len(builtins)+len(userParams))
	for k, v := range userParams {
		result[k] = v
	}
	for k, v := range builtins {
		result[k] = v
	}
	return result
}

// Placeholders lists the distinct variable names used in prompt, in order of
// first appearance.
func Placeholders(prompt string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range variablePattern.FindAllStringSubmatch(prompt, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// RequirePlaceholders returns an error naming the first required variable
// that prompt does not reference.
func RequirePlaceholders(prompt string, required ...string) error {
	present := make(map[string]bool)
	for _, name := range Placeholders(prompt) {
		present[name] = true
	}
	for _, name := range required {
		if !present[name] {
			return fmt.Errorf("prompt template is missing {{%s}}", name)
		}
	}
	return nil
}
