package version

import (
	"regexp"
	"strings"
)

var (
	osNamePattern     = regexp.MustCompile(`^(android|ios|tvos)(\s*(\d+\.)?(\d+\.)?(\d+))?`)
	numericPattern    = regexp.MustCompile(`(\d+\.)?(\d+\.)?(\d+)`)
	appVersionPattern = regexp.MustCompile(`^5\.(\d+\.)?(\d+)`)
)

// unknownOS is accepted as an OS name. The misspelling is what the NLU emits.
const unknownOS = "unkown"

// IsValidOSName reports whether name starts with a known OS family,
// optionally followed by a version.
func IsValidOSName(name string) bool {
	lower := strings.ToLower(name)
	return osNamePattern.MatchString(lower) || lower == unknownOS
}

// MatchAppVersion returns the first app version found in each candidate, in
// input order. App versions belong to the 5.x release train; a "5" preceded
// by a period is part of some other number and never starts a match.
func MatchAppVersion(candidates ...string) []string {
	var matches []string
	for _, c := range candidates {
		if m := findAppVersion(c); m != "" {
			matches = append(matches, m)
		}
	}
	return matches
}

func findAppVersion(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] != '5' {
			continue
		}
		if i > 0 && s[i-1] == '.' {
			continue
		}
		if m := appVersionPattern.FindString(s[i:]); m != "" {
			return m
		}
	}
	return ""
}

// MatchOSVersion extracts dotted numeric versions. It returns nil when any
// candidate reads as an app version, since the two release trains overlap.
func MatchOSVersion(candidates ...string) []string {
	if len(MatchAppVersion(candidates...)) > 0 {
		return nil
	}
	return MatchNumeric(candidates...)
}

// MatchNumeric returns the first dotted numeric version of each candidate.
func MatchNumeric(candidates ...string) []string {
	var matches []string
	for _, c := range candidates {
		if m := numericPattern.FindString(c); m != "" {
			matches = append(matches, m)
		}
	}
	return matches
}
