package export

import (
	"strconv"
	"strings"
)

// The parsers below implement the permissive contract used for numeric form
// fields: malformed input yields the fallback instead of an error, so a
// half-typed field never blocks the editor. Callers that need strictness
// should use strconv directly.

// ParseInt parses a base-10 integer, ignoring surrounding space and any
// trailing non-digits ("120px" is 120). It returns fallback when no leading
// digits are present.
func ParseInt(s string, fallback int) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && (s[end] == '-' || s[end] == '+')) {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return fallback
	}
	return n
}

// ParseFloat parses a decimal number, returning fallback on failure.
func ParseFloat(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fallback
	}
	return f
}

// ParseOutputSpec parses "WxH" into an enabled OutputSpec. Unparseable
// dimensions become zero, and a zero dimension disables the spec.
func ParseOutputSpec(s string) OutputSpec {
	w, h, _ := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	spec := OutputSpec{
		Width:  ParseInt(w, 0),
		Height: ParseInt(h, 0),
	}
	spec.Enabled = spec.Width > 0 && spec.Height > 0
	return spec
}
