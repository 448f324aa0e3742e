package nlp

import (
	"context"

	"SigSecure/internal/entity"
)

type IRecognizer interface {
	Recognize(ctx context.Context, text string) ([]entity.EntitySpan, error)
}

type IEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

var (
	_ IRecognizer = (*RuleRecognizer)(nil)
	_ IEmbedder   = (*HashEmbedder)(nil)
)
