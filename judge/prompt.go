package judge

import (
	"strings"
	"text/template"

	"github.com/tailored-agentic-units/steer/session"
)

var evaluation = template.Must(template.New("evaluation").Parse(
	`Steering adjusts neural network features to change model behavior. Higher values increase the target behavior but may reduce coherence. Lower values maintain coherence but reduce the desired behavior.

Original prompt: {{.Prompt}}
Target behavior: {{.Specification}}
Model output: {{.Output}}
Current steering value: {{.Steering}}
Steering feature description: {{.Feature}}

Previous attempts:
{{.History}}

Evaluate if the output achieves the target behavior while remaining coherent and natural.

If satisfactory, respond: stop
If needs adjustment, respond with a single float between -1.0 and 1.0 for the new steering value.
If the output is completely off-topic or gibberish, reduce the steering value towards 0.
`))

// BuildPrompt renders the evaluation request for c.
func BuildPrompt(c Context) string {
	var b strings.Builder
	// Executing into a strings.Builder with string fields cannot fail.
	_ = evaluation.Execute(&b, struct {
		Context
		Steering string
	}{
		Context:  c,
		Steering: session.FormatFloat(c.Steering),
	})
	return b.String()
}
