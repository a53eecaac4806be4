package command

import "encoding/json"

// renderOutput layers spec.md §4.7's extra formatting on top of the §4.6
// base rendering already performed by mcpclient.RenderContent: structured
// (valid-JSON) text is pretty-printed; anything else, including its
// newline-joined multi-line form, passes through unchanged.
func renderOutput(text string) string {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return text
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return text
	}
	return string(pretty)
}
