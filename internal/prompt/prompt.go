// Package prompt renders the classifier system prompt.
package prompt

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed llm_prompt.txt
var promptText string

var promptTmpl = template.Must(template.New("llm_prompt").Parse(promptText))

// Render fills the classifier prompt template with the user's own email
// address so the model knows whose inbox it is triaging. An empty address
// is allowed; the classifier then works without that context.
func Render(userEmail string) (string, error) {
	var b strings.Builder
	if err := promptTmpl.Execute(&b, struct{ UserEmail string }{UserEmail: userEmail}); err != nil {
		return "", fmt.Errorf("render llm prompt: %w", err)
	}
	return b.String(), nil
}
