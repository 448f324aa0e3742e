package nlp

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"SigSecure/internal/entity"
)

const (
	LabelPerson = "PERSON"
	LabelDate   = "DATE"
	LabelGPE    = "GPE"
)

var (
	months = `(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)`

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}\b`),
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`\b` + months + `\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
		regexp.MustCompile(`\b\d{1,2}(?:st|nd|rd|th)?\s+` + months + `\.?,?\s+\d{4}\b`),
	}

	name  = `[A-Z][a-zA-Z'\-]+(?:[ \t]+[A-Z]\.)?(?:[ \t]+[A-Z][a-zA-Z'\-]+){0,2}`
	title = `(?:(?:Dr|Mr|Mrs|Ms|Prof)\.?[ \t]+)?`

	personPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i:signer|witness|name|patient|physician|notary)[ \t]*:[ \t]*` + title + `(` + name + `)`),
		regexp.MustCompile(`(?i:signed|witnessed)[ \t]+(?i:by)[ \t]+` + title + `(` + name + `)`),
		regexp.MustCompile(`\b(?:Dr|Mr|Mrs|Ms|Prof)\.?[ \t]+(` + name + `)`),
	}

	locationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?,\s+[A-Z]{2})\b`),
		regexp.MustCompile(`(?i:city|location|place|address)[ \t]*:[ \t]*([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)?)`),
	}
)

// RuleRecognizer is an offline entity recognizer built from label cues
// ("Signer:", "Dr."), date formats and "City, ST" patterns. It reports
// spaCy-style labels.
type RuleRecognizer struct{}

func NewRuleRecognizer() *RuleRecognizer {
	return &RuleRecognizer{}
}

func (r *RuleRecognizer) Recognize(ctx context.Context, text string) ([]entity.EntitySpan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type found struct {
		start int
		span  entity.EntitySpan
	}
	var spans []found
	taken := make([]bool, len(text))

	claim := func(start, end int, label string) {
		for i := start; i < end; i++ {
			if taken[i] {
				return
			}
		}
		for i := start; i < end; i++ {
			taken[i] = true
		}
		spans = append(spans, found{start: start, span: entity.EntitySpan{
			Text:  strings.TrimSpace(text[start:end]),
			Label: label,
		}})
	}

	for _, p := range datePatterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			claim(loc[0], loc[1], LabelDate)
		}
	}
	for _, p := range personPatterns {
		for _, loc := range p.FindAllStringSubmatchIndex(text, -1) {
			claim(loc[2], trimLabelWords(text, loc[2], loc[3]), LabelPerson)
		}
	}
	for _, p := range locationPatterns {
		for _, loc := range p.FindAllStringSubmatchIndex(text, -1) {
			claim(loc[2], loc[3], LabelGPE)
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	out := make([]entity.EntitySpan, 0, len(spans))
	for _, f := range spans {
		if f.span.Text != "" {
			out = append(out, f.span)
		}
	}
	return out, nil
}

var labelWords = map[string]bool{
	"date": true, "signature": true, "witness": true, "name": true,
	"title": true, "address": true, "signed": true, "print": true,
	"phone": true, "email": true, "city": true, "location": true,
}

// trimLabelWords drops trailing form labels ("John Doe Date") that the
// capitalized-word pattern swallows.
func trimLabelWords(text string, start, end int) int {
	for end > start {
		i := strings.LastIndexAny(text[start:end], " \t")
		if i < 0 {
			break
		}
		if !labelWords[strings.ToLower(text[start+i+1:end])] {
			break
		}
		end = start + i
	}
	return end
}
