package openrouter

import "encoding/json"

// outputEntry is one entry of a responses-style output list. Only the fields
// needed to find assistant text are decoded.
type outputEntry struct {
	Type    string          `json:"type"`
	Text    string          `json:"text,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

type contentEntry struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// OutputText extracts the assistant text from a response, whatever shape the
// provider used: a plain output string, a responses-style message list, or
// chat-style choices. Returns "" when no text is present.
func (r *ResponsesResponse) OutputText() string {
	if text := decodeOutput(r.Output); text != "" {
		return text
	}
	for _, choice := range r.Choices {
		if choice.Message.Content != "" {
			return choice.Message.Content
		}
	}
	return ""
}

func decodeOutput(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var entries []outputEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.Type == "message" && len(entry.Content) > 0 {
			var contents []contentEntry
			if err := json.Unmarshal(entry.Content, &contents); err != nil {
				continue
			}
			for _, c := range contents {
				if c.Type == "output_text" && c.Text != "" {
					return c.Text
				}
			}
		}
		if entry.Text != "" {
			return entry.Text
		}
	}
	return ""
}
