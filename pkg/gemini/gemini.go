package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"SigSecure/internal/entity"

	"github.com/google/generative-ai-go/genai"
	jsoniter "github.com/json-iterator/go"
	"google.golang.org/api/option"
)

const nerPrompt = `Extract named entities from the text below. Return only a JSON array of
objects with keys "text" (exact substring of the input) and "label" (one of PERSON, DATE,
LOCATION). Return [] when there are none.

Text:
`

type IGemini interface {
	Recognize(ctx context.Context, text string) ([]entity.EntitySpan, error)
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Close()
}

type geminiClient struct {
	modelName      string
	embeddingModel string
	client         *genai.Client
}

func NewGeminiClient() (IGemini, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	modelName := os.Getenv("GEMINI_MODEL_NAME")
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	embeddingModel := os.Getenv("GEMINI_EMBEDDING_MODEL")
	if embeddingModel == "" {
		embeddingModel = "text-embedding-004"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &geminiClient{
		modelName:      modelName,
		embeddingModel: embeddingModel,
		client:         client,
	}, nil
}

func (g *geminiClient) Recognize(ctx context.Context, text string) ([]entity.EntitySpan, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0)

	res, err := model.GenerateContent(ctx, genai.Text(nerPrompt+text))
	if err != nil {
		return nil, err
	}

	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("no response from Gemini API")
	}

	reply, ok := res.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, errors.New("unexpected response format from Gemini API")
	}

	return ParseEntities(string(reply))
}

func (g *geminiClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	em := g.client.EmbeddingModel(g.embeddingModel)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(res.Embeddings), len(texts))
	}

	out := make([][]float32, len(res.Embeddings))
	for i, e := range res.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

func (g *geminiClient) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

// ParseEntities decodes the model's JSON reply. Markdown code fences around
// the array are tolerated.
func ParseEntities(reply string) ([]entity.EntitySpan, error) {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")
	reply = strings.TrimSpace(reply)

	var spans []entity.EntitySpan
	if err := jsoniter.UnmarshalFromString(reply, &spans); err != nil {
		return nil, fmt.Errorf("invalid entity JSON from Gemini: %w", err)
	}

	out := spans[:0]
	for _, s := range spans {
		if strings.TrimSpace(s.Text) != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
