package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// keywordEmbedder puts texts mentioning a keyword on one axis and everything
// else on the other.
type keywordEmbedder struct {
	keyword string
	err     error
}

func (k keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if k.err != nil {
		return nil, k.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if i == 0 || strings.Contains(strings.ToLower(t), k.keyword) {
			out[i] = []float32{1, 0}
		} else {
			out[i] = []float32{0, 1}
		}
	}
	return out, nil
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"Signed by Dr. Jane Smith. Date: 01.02.2020; Witness present!", []string{"Signed by Dr. Jane Smith.", "Date: 01.02.2020;", "Witness present!"}},
		{"J. R. Doe signed here", []string{"J. R. Doe signed here"}},
		{"no terminal mark", []string{"no terminal mark"}},
		{"   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.text))
		})
	}
}

func TestFilter(t *testing.T) {
	text := "Signer name: John Doe. Terms apply. Page 2 of 4."

	tests := []struct {
		name     string
		embedder Embedder
		want     []string
	}{
		{
			name:     "keeps matching sentences",
			embedder: keywordEmbedder{keyword: "signer"},
			want:     []string{"Signer name: John Doe."},
		},
		{
			name:     "falls back when nothing matches",
			embedder: keywordEmbedder{keyword: "notary"},
			want:     []string{"Signer name: John Doe.", "Terms apply.", "Page 2 of 4."},
		},
		{
			name:     "falls back on embedder error",
			embedder: keywordEmbedder{err: errors.New("quota")},
			want:     []string{"Signer name: John Doe.", "Terms apply.", "Page 2 of 4."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewRelevanceFilter(DefaultConfig(), tt.embedder, quietLogger())
			assert.Equal(t, tt.want, f.Filter(context.Background(), text))
		})
	}

	f := NewRelevanceFilter(DefaultConfig(), keywordEmbedder{keyword: "signer"}, quietLogger())
	assert.Empty(t, f.Filter(context.Background(), ""))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 3}), 1e-6)
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 2}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 2}))
}

func TestFilterThresholdKeepsEverything(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Relevance.Threshold = -1

	f := NewRelevanceFilter(cfg, keywordEmbedder{keyword: "signer"}, quietLogger())
	got := f.Filter(context.Background(), "Signer name: John Doe. Terms apply.")
	assert.Equal(t, []string{"Signer name: John Doe.", "Terms apply."}, got)
}
