package pipeline

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"
)

// RelevanceFilter keeps the sentences of a context window that read like a
// description of the signer.
type RelevanceFilter struct {
	cfg      RelevanceConfig
	embedder Embedder
	log      *logrus.Logger
	timeout  time.Duration
}

func NewRelevanceFilter(cfg Config, embedder Embedder, log *logrus.Logger) *RelevanceFilter {
	cfg = cfg.Normalize()
	return &RelevanceFilter{
		cfg:      cfg.Relevance,
		embedder: embedder,
		log:      log,
		timeout:  cfg.Timeout,
	}
}

// Filter returns the sentences scoring at or above the threshold against the
// anchor phrase. When nothing qualifies, or scoring is unavailable, every
// sentence is returned; the result is only empty when text is.
func (f *RelevanceFilter) Filter(ctx context.Context, text string) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 || f.embedder == nil {
		return sentences
	}

	c, cancel := withTimeout(ctx, f.timeout)
	defer cancel()

	vectors, err := f.embedder.Embed(c, append([]string{f.cfg.Anchor}, sentences...))
	if err != nil || len(vectors) != len(sentences)+1 {
		fields := logrus.Fields{"stage": "relevance", "sentences": len(sentences)}
		if err != nil {
			fields["error"] = err.Error()
		}
		f.log.WithFields(fields).Warn("Embedding unavailable, keeping all sentences")
		return sentences
	}

	anchor := vectors[0]
	var kept []string
	for i, s := range sentences {
		if Cosine(anchor, vectors[i+1]) >= f.cfg.Threshold {
			kept = append(kept, s)
		}
	}

	if len(kept) == 0 {
		return sentences
	}
	return kept
}

// SplitSentences breaks running text after '.', '!', '?' or ';' when the
// mark is followed by whitespace or ends the text.
func SplitSentences(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	var out []string
	start := 0

	flush := func(end int) {
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
	}

	for i, r := range runes {
		switch r {
		case '.', '!', '?', ';':
			if i < len(runes)-1 && !unicode.IsSpace(runes[i+1]) {
				continue
			}
			if r == '.' && isAbbreviation(runes[start:i]) {
				continue
			}
			flush(i + 1)
		}
	}
	flush(len(runes))

	return out
}

var abbreviations = map[string]bool{
	"dr": true, "mr": true, "mrs": true, "ms": true, "prof": true,
	"jr": true, "sr": true, "st": true, "no": true, "md": true,
}

// isAbbreviation reports whether the word ending right before a period is a
// title or an initial, which does not end a sentence.
func isAbbreviation(prefix []rune) bool {
	j := len(prefix)
	for j > 0 && unicode.IsLetter(prefix[j-1]) {
		j--
	}
	word := string(prefix[j:])
	if word == "" {
		return false
	}
	if len([]rune(word)) == 1 && unicode.IsUpper([]rune(word)[0]) {
		return true
	}
	return abbreviations[strings.ToLower(word)]
}

func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
