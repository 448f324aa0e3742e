package pipeline

import (
	"context"
	"strings"
	"time"

	"SigSecure/internal/entity"

	"github.com/sirupsen/logrus"
)

var labelAliases = map[string]entity.EntityLabel{
	"PERSON":   entity.LabelPerson,
	"PER":      entity.LabelPerson,
	"DATE":     entity.LabelDate,
	"LOCATION": entity.LabelLocation,
	"LOC":      entity.LabelLocation,
	"GPE":      entity.LabelLocation,
	"FAC":      entity.LabelLocation,
}

// NormalizeLabel maps recognizer labels onto the three redactable labels.
// ok is false for anything else (ORG, MONEY, ...).
func NormalizeLabel(label string) (entity.EntityLabel, bool) {
	l, ok := labelAliases[strings.ToUpper(strings.TrimSpace(label))]
	return l, ok
}

type EntityExtractor struct {
	cfg         EntityConfig
	recognizer  EntityRecognizer
	log         *logrus.Logger
	timeout     time.Duration
	boilerplate map[string]bool
}

func NewEntityExtractor(cfg Config, recognizer EntityRecognizer, log *logrus.Logger) *EntityExtractor {
	cfg = cfg.Normalize()

	boilerplate := make(map[string]bool, len(cfg.Entities.Boilerplate))
	for _, w := range cfg.Entities.Boilerplate {
		boilerplate[strings.ToLower(w)] = true
	}

	return &EntityExtractor{
		cfg:         cfg.Entities,
		recognizer:  recognizer,
		log:         log,
		timeout:     cfg.Timeout,
		boilerplate: boilerplate,
	}
}

// Extract runs the recognizer over the relevant sentences and returns the
// redactable entities, deduplicated by (text, label) in first-seen order.
func (x *EntityExtractor) Extract(ctx context.Context, sentences []string) ([]entity.Entity, []entity.EntitySpan, error) {
	text := strings.TrimSpace(strings.Join(sentences, " "))
	if text == "" {
		return nil, nil, nil
	}

	c, cancel := withTimeout(ctx, x.timeout)
	defer cancel()

	spans, err := x.recognizer.Recognize(c, text)
	if err != nil {
		return nil, nil, err
	}

	type key struct {
		text  string
		label entity.EntityLabel
	}
	seen := make(map[key]bool)

	var out []entity.Entity
	for _, span := range spans {
		label, ok := NormalizeLabel(span.Label)
		if !ok {
			continue
		}

		tokens := strings.Fields(span.Text)
		if len(tokens) == 0 || x.isBoilerplate(tokens) {
			continue
		}

		k := key{text: strings.Join(tokens, " "), label: label}
		if seen[k] {
			continue
		}
		seen[k] = true

		out = append(out, entity.Entity{
			Text:      k.text,
			Label:     label,
			TokenSpan: tokens,
		})
	}

	return out, spans, nil
}

func (x *EntityExtractor) isBoilerplate(tokens []string) bool {
	for _, t := range tokens {
		if x.boilerplate[strings.ToLower(strings.Trim(t, punctuation))] {
			return true
		}
	}
	return false
}
