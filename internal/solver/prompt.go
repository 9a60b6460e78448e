package solver

import (
	"fmt"
	"os"

	"github.com/andywolf/nebulacalc/internal/template"
)

// DefaultPromptTemplate asks the model for a bare expression. {{problem}} is
// replaced with the trimmed problem text.
const DefaultPromptTemplate = `You are a mathematical assistant. Convert the following word problem into a single, solvable mathematical expression. Provide ONLY the raw expression. For example, for the problem "What is 3 plus 5 divided by 2?", you should only output "(3+5)/2". Problem: "{{problem}}"`

// LoadPromptTemplate reads a prompt override from disk. The file must use
// the {{problem}} placeholder.
func LoadPromptTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file: %w", err)
	}
	prompt := string(data)
	if err := template.RequirePlaceholders(prompt, "problem"); err != nil {
		return "", fmt.Errorf("prompt file %s: %w", path, err)
	}
	return prompt, nil
}

// BuildPrompt renders tmpl with the problem text and any extra variables.
func BuildPrompt(tmpl, problem string, extra map[string]string) string {
	vars := template.MergeVariables(map[string]string{"problem": problem}, extra)
	return template.RenderPrompt(tmpl, vars)
}
