package pattern

import "strings"

// MatchesGlob reports whether s matches pattern, case-insensitively.
// '*' matches any run of characters, including none; everything else is literal.
func MatchesGlob(s, pattern string) bool {
	pattern = strings.ToLower(pattern)
	s = strings.ToLower(s)

	if pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		// this is an exact matcha
		return s == pattern
	}

	parts := strings.Split(pattern, "*")

	// first and last segments are anchored, the ones between float
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]

	last := parts[len(parts)-1]
	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(s, part)
		if idx < 0 {
			return false
		}
		s = s[idx+len(part):]
	}

	return strings.HasSuffix(s, last)
}

// MatchesAnyLine reports whether any line of text matches one of the patterns.
func MatchesAnyLine(text string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		for _, p := range patterns {
			if MatchesGlob(line, p) {
				return true
			}
		}
	}
	return false
}
