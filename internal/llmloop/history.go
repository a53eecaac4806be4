package llmloop

import "google.golang.org/genai"

const (
	roleUser  = "user"
	roleModel = "model"
)

// history accumulates the append-only mixed user/model/function-response
// turn sequence spec.md §4.10 describes, generalized from
// `internal/session/history.go`'s flat user/assistant turn list (ToMessages)
// to the richer function-calling sequence.
type history struct {
	turns []*genai.Content
}

// newHistory seeds the sequence with the user's prompt as its sole turn.
func newHistory(prompt string) *history {
	return &history{turns: []*genai.Content{userText(prompt)}}
}

func (h *history) appendModel(content *genai.Content) {
	h.turns = append(h.turns, content)
}

func (h *history) appendFunctionResponse(id, name string, payload map[string]any) {
	h.turns = append(h.turns, &genai.Content{
		Role: roleUser,
		Parts: []*genai.Part{{
			FunctionResponse: &genai.FunctionResponse{ID: id, Name: name, Response: payload},
		}},
	})
}

func (h *history) contents() []*genai.Content {
	return h.turns
}

func userText(text string) *genai.Content {
	return &genai.Content{Role: roleUser, Parts: []*genai.Part{{Text: text}}}
}

// functionCalls walks a response's candidate content for FunctionCall
// parts, in order. The SDK's own convenience accessors vary across
// versions; this walks the documented Candidates[0].Content.Parts shape
// directly.
func functionCalls(resp *genai.GenerateContentResponse) []*genai.FunctionCall {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var calls []*genai.FunctionCall
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
		}
	}
	return calls
}

// responseText extracts text by the response's primary text field, else
// concatenates non-empty part texts, per spec.md §4.10's "Simple" rule
// (shared by the tool-calling exit path).
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	if t := resp.Text(); t != "" {
		return t
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text
}

// modelContent returns the content to append to history for a model turn
// that produced function calls.
func modelContent(resp *genai.GenerateContentResponse) *genai.Content {
	if resp == nil || len(resp.Candidates) == 0 {
		return &genai.Content{Role: roleModel}
	}
	return resp.Candidates[0].Content
}
