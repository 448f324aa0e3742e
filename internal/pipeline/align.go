package pipeline

import (
	"SigSecure/internal/entity"
	"SigSecure/pkg/geometry"
	"SigSecure/pkg/nlp"
)

const punctuation = ".,;:!?\"'()[]{}<>"

// Aligner locates entity token spans among OCR words.
//
// A match starts at a word that absorbs the first token and then walks
// forward; every following token must be absorbed by one of the next
// Lookahead+1 words. A word absorbs several consecutive tokens when their
// concatenation matches it ("JohnDoe" for "John Doe"). There is no
// backtracking: the first start word that consumes every token wins. Worst
// case is O(words * tokens * lookahead) ratio evaluations.
type Aligner struct {
	Ratio     float64
	Lookahead int
}

func NewAligner(cfg Config) Aligner {
	cfg = cfg.Normalize()
	return Aligner{Ratio: cfg.Entities.FuzzyRatio, Lookahead: cfg.Entities.Lookahead}
}

// Match returns the indexes into words that carry the entity, or nil when
// the entity cannot be placed.
func (a Aligner) Match(words []entity.OCRWord, tokens []string) []int {
	normTokens := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if n := nlp.NormalizeToken(t); n != "" {
			normTokens = append(normTokens, n)
		}
	}
	if len(normTokens) == 0 {
		return nil
	}

	// Empty OCR tokens are neither matchable nor counted as skipped words.
	idx := make([]int, 0, len(words))
	normWords := make([]string, 0, len(words))
	for i, w := range words {
		if n := nlp.NormalizeToken(w.Text); n != "" {
			idx = append(idx, i)
			normWords = append(normWords, n)
		}
	}

	for start := range normWords {
		if used := a.matchFrom(normWords, normTokens, start); used != nil {
			out := make([]int, len(used))
			for i, u := range used {
				out[i] = idx[u]
			}
			return out
		}
	}
	return nil
}

func (a Aligner) matchFrom(words, tokens []string, start int) []int {
	t := a.absorb(words[start], tokens)
	if t == 0 {
		return nil
	}

	used := []int{start}
	last := start
	for t < len(tokens) {
		next := -1
		for j := last + 1; j < len(words) && j <= last+1+a.Lookahead; j++ {
			if k := a.absorb(words[j], tokens[t:]); k > 0 {
				next = j
				t += k
				break
			}
		}
		if next < 0 {
			return nil
		}
		used = append(used, next)
		last = next
	}
	return used
}

// absorb reports how many leading tokens word stands for, preferring the
// longest concatenation that matches. Zero means no match.
func (a Aligner) absorb(word string, tokens []string) int {
	concat := ""
	best := 0
	for k, t := range tokens {
		concat += t
		if len(concat) > 2*len(word)+2 {
			break
		}
		if nlp.Ratio(word, concat) >= a.Ratio {
			best = k + 1
		}
	}
	return best
}

// Locate aligns ent within the window and returns its page-space rectangle
// clamped to bounds. ok is false when the entity has no match.
func (a Aligner) Locate(w ContextWindow, ent entity.Entity, bounds geometry.Rect) (geometry.Rect, bool) {
	used := a.Match(w.Words, ent.TokenSpan)
	if used == nil {
		return geometry.Rect{}, false
	}

	var envelope geometry.Rect
	for _, i := range used {
		envelope = envelope.Union(w.Words[i].BBox)
	}
	if envelope.IsEmpty() {
		return geometry.Rect{}, false
	}

	r := w.Space.ToPage(envelope).Clamp(bounds)
	return r, !r.IsEmpty()
}
