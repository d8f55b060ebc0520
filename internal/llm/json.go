package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

// StripCodeFences removes a markdown code fence (```json ... ```) wrapped
// around a model response, if present.
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	// Drop the opening fence line (``` or ```json)
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	} else {
		return strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}

	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// Repair applies a second-chance cleanup to almost-JSON model output:
// it cuts the string down to the outermost object or array and removes
// trailing commas before closing brackets.
func Repair(s string) string {
	s = StripCodeFences(s)

	objStart := strings.Index(s, "{")
	arrStart := strings.Index(s, "[")
	start := objStart
	closer := byte('}')
	if start < 0 || (arrStart >= 0 && arrStart < start) {
		start = arrStart
		closer = ']'
	}
	if start < 0 {
		return s
	}

	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return s[start:]
	}
	s = s[start : end+1]

	return trailingComma.ReplaceAllString(s, "$1")
}

// Unmarshal parses a model response into v. It strips code fences first,
// then attempts a repair pass if the initial parse fails.
func Unmarshal(text string, v any) error {
	cleaned := StripCodeFences(text)
	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}

	repaired := Repair(text)
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("failed to parse model JSON output: %w", err)
	}
	return nil
}
