package nlp

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases text, strips combining marks and replaces anything
// that is not a letter, digit or space with a space.
func Normalize(text string) string {
	text = strings.ToLower(text)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, text)
	if err != nil {
		result = text
	}

	result = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, result)

	return strings.Join(strings.Fields(result), " ")
}

// NormalizeToken is Normalize for a single token: inner separators are
// dropped instead of becoming spaces, so "o'neil" and "o-neil" agree.
func NormalizeToken(token string) string {
	return strings.ReplaceAll(Normalize(token), " ", "")
}

// Similarity is the edit-distance ratio of two normalized strings:
// 1 - levenshtein/maxLen, in [0,1].
func Similarity(a, b string) float64 {
	n1 := Normalize(a)
	n2 := Normalize(b)
	return Ratio(n1, n2)
}

// Ratio is Similarity without normalization.
func Ratio(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}

	r1, r2 := []rune(a), []rune(b)
	maxLen := math.Max(float64(len(r1)), float64(len(r2)))
	if maxLen == 0 {
		return 0
	}

	distance := Levenshtein(r1, r2)
	return math.Max(0, 1.0-float64(distance)/maxLen)
}

func Levenshtein(s1, s2 []rune) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	cur := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		cur[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			cur[j] = min3(
				prev[j]+1,
				cur[j-1]+1,
				prev[j-1]+cost,
			)
		}
		prev, cur = cur, prev
	}

	return prev[len(s2)]
}

func min3(a, b, c int) int {
	if a < b && a < c {
		return a
	} else if b < c {
		return b
	}
	return c
}
