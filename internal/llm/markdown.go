package llm

import "strings"

// StripMarkdownFences removes ```json / ``` code fences a model may wrap
// around its response.
func StripMarkdownFences(content string) string {
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```", "")
	return strings.TrimSpace(content)
}

// ExtractJSONObject returns the substring between the first '{' and the
// last '}' of content, after fence stripping. ok is false when no object
// delimiters are present.
func ExtractJSONObject(content string) (string, bool) {
	content = StripMarkdownFences(content)
	first := strings.Index(content, "{")
	last := strings.LastIndex(content, "}")
	if first == -1 || last == -1 || last < first {
		return "", false
	}
	return content[first : last+1], true
}
