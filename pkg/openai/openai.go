package openai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"SigSecure/internal/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/sashabaranov/go-openai"
)

const nerSystemPrompt = `You are a named entity recognizer for scanned legal and medical forms.

IMPORTANT: Return ONLY valid JSON, nothing else.

Format:
{"entities": [{"text": "John Doe", "label": "PERSON"}]}

Rules:
- label: one of "PERSON", "DATE", "LOCATION"
- text: copy the entity exactly as it appears in the input
- return {"entities": []} when nothing qualifies`

type IOpenAI interface {
	Recognize(ctx context.Context, text string) ([]entity.EntitySpan, error)
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type nerReply struct {
	Entities []entity.EntitySpan `json:"entities"`
}

type openAIService struct {
	client         *openai.Client
	model          string
	embeddingModel openai.EmbeddingModel
}

func NewOpenAI() IOpenAI {
	apiKey := os.Getenv("OPENAI_API_KEY")

	model := os.Getenv("OPENAI_CHAT_MODEL")
	if model == "" {
		model = openai.GPT4oMini
	}

	embeddingModel := openai.EmbeddingModel(os.Getenv("OPENAI_EMBEDDING_MODEL"))
	if embeddingModel == "" {
		embeddingModel = openai.SmallEmbedding3
	}

	return newService(openai.NewClient(apiKey), model, embeddingModel)
}

func newService(client *openai.Client, model string, embeddingModel openai.EmbeddingModel) *openAIService {
	return &openAIService{client: client, model: model, embeddingModel: embeddingModel}
}

func (c *openAIService) Recognize(ctx context.Context, text string) ([]entity.EntitySpan, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: nerSystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: text},
			},
			Temperature: 0,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	var reply nerReply
	if err := jsoniter.UnmarshalFromString(resp.Choices[0].Message.Content, &reply); err != nil {
		return nil, fmt.Errorf("failed to parse entities: %w", err)
	}

	out := make([]entity.EntitySpan, 0, len(reply.Entities))
	for _, e := range reply.Entities {
		if strings.TrimSpace(e.Text) != "" {
			out = append(out, e)
		}
	}
	return out, nil
}

func (c *openAIService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.embeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}
	return out, nil
}
