package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Model output parsing is tolerant by design: direct JSON first, then
// JSON inside a code fence, then a bracket scan for the first balanced
// object or array. Callers treat a total miss as a degradation.

var codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// decodeJSON unmarshals model output into v, recovering from wrapping
// prose and code fences.
func decodeJSON(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}
	if m := codeFencePattern.FindStringSubmatch(raw); m != nil {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), v); err == nil {
			return nil
		}
	}
	if frag := extractBalanced(raw, '{', '}'); frag != "" {
		if err := json.Unmarshal([]byte(frag), v); err == nil {
			return nil
		}
	}
	if frag := extractBalanced(raw, '[', ']'); frag != "" {
		if err := json.Unmarshal([]byte(frag), v); err == nil {
			return nil
		}
	}
	return json.Unmarshal([]byte(raw), v) // report the original error
}

// extractBalanced returns the first balanced open..closing region of s,
// ignoring brackets inside JSON strings.
func extractBalanced(s string, open, closing byte) string {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
		case closing:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// parseLines splits plain-text line output into trimmed non-empty lines,
// stripping list markers the model sometimes adds anyway.
func parseLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•0123456789.) ")
		line = strings.Trim(line, `"`)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
