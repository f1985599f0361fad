// Package llm - util.go provides shared utilities for LLM response processing.
package llm

import "strings"

// CleanJSONBlock removes markdown code block wrappers from JSON responses.
// LLMs often wrap JSON in ```json ... ``` blocks even when instructed not to,
// and sometimes add conversational text around the payload.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	// Handle ```json ... ``` blocks
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
		return extractPayload(text)
	}

	// Handle generic ``` ... ``` blocks
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip potential language identifier on first line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			// If first line looks like a language identifier (no spaces, short), skip it
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
		return extractPayload(text)
	}

	return extractPayload(text)
}

// extractPayload strips preamble and trailing prose around the first
// balanced JSON object or array. Whichever opener appears first wins, so
// an array of objects is not mistaken for its first element. Text with
// no extractable payload is returned unchanged.
func extractPayload(text string) string {
	objStart := strings.IndexByte(text, '{')
	arrStart := strings.IndexByte(text, '[')

	if arrStart >= 0 && (objStart < 0 || arrStart < objStart) {
		if arr := extractJSONArray(text); arr != "" {
			return arr
		}
	}
	if obj := extractJSONObject(text); obj != "" {
		return obj
	}
	if arr := extractJSONArray(text); arr != "" {
		return arr
	}
	return text
}

// extractJSONObject returns the first balanced {...} region of text, or
// "" when none exists.
func extractJSONObject(text string) string {
	return extractBalanced(text, '{', '}')
}

// extractJSONArray returns the first balanced [...] region of text, or
// "" when none exists.
func extractJSONArray(text string) string {
	return extractBalanced(text, '[', ']')
}

// extractBalanced scans for the first open byte and returns the slice up
// to its matching close, tracking JSON string literals so delimiters
// inside strings are not counted.
func extractBalanced(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return "" // unbalanced
}
