package solver

import (
	"encoding/json"
	"fmt"
	"strings"
)

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text *string `json:"text,omitempty"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content *content `json:"content"`
}

func newRequest(prompt string) generateRequest {
	return generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: &prompt}},
		}},
	}
}

// ParseResponse extracts candidates[0].content.parts[0].text from a
// generateContent reply. An empty text is valid; a missing one is not.
func ParseResponse(body []byte) (string, error) {
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	}
	c := resp.Candidates[0].Content
	if c == nil || len(c.Parts) == 0 {
		return "", fmt.Errorf("%w: no content parts", ErrMalformedResponse)
	}
	if c.Parts[0].Text == nil {
		return "", fmt.Errorf("%w: first part has no text", ErrMalformedResponse)
	}
	return *c.Parts[0].Text, nil
}

// CleanExpression strips markdown code fences and backticks, then trims.
func CleanExpression(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "`", ""))
}
