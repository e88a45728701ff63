package fuzzy

import (
	"math"
	"strings"
)

// Threshold is the minimum Ratio for a vocabulary entry to count as a match.
const Threshold = 70

var (
	AppleVocabulary   = []string{"ipad", "iphone", "apple"}
	AndroidVocabulary = []string{"galaxy", "samsung", "bravia", "mate", "huawei", "pixel", "google"}
)

// Ratio scores the similarity of a and b from 0 to 100 using the indel
// distance: 100 * 2*LCS / (len(a)+len(b)), rounded.
func Ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	lcs := longestCommonSubsequence(ra, rb)
	return int(math.Round(100 * float64(2*lcs) / float64(total)))
}

// FindMatch returns the first vocabulary entry whose case-insensitive Ratio
// against candidate reaches Threshold.
func FindMatch(candidate string, vocabulary []string) (string, bool) {
	lower := strings.ToLower(candidate)
	for _, token := range vocabulary {
		if Ratio(lower, strings.ToLower(token)) >= Threshold {
			return token, true
		}
	}
	return "", false
}

// MatchAnyToken splits text on whitespace and reports whether any token
// fuzzy-matches the vocabulary.
func MatchAnyToken(text string, vocabulary []string) (string, bool) {
	for _, token := range strings.Fields(text) {
		if m, ok := FindMatch(token, vocabulary); ok {
			return m, true
		}
	}
	return "", false
}

func longestCommonSubsequence(a, b []rune) int {
	// two rows instead of the full table
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
