package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"SigSecure/internal/pipeline"
	"SigSecure/pkg/gemini"
	"SigSecure/pkg/nlp"
	"SigSecure/pkg/openai"
	"SigSecure/pkg/tesseract"
	websocketPkg "SigSecure/pkg/websocket"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var ErrUnknownProvider = errors.New("unknown provider")

// LoadPipelineConfig reads the YAML tuning file at path over the built-in
// defaults. An empty path yields the defaults.
func LoadPipelineConfig(path string) (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("failed to read pipeline config: %w", err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return pipeline.Config{}, fmt.Errorf("failed to parse pipeline config: %w", err)
	}

	return cfg.Normalize(), nil
}

// Collaborators are the external engines the pipeline calls into.
type Collaborators struct {
	OCR      pipeline.OCREngine
	NER      pipeline.EntityRecognizer
	Embedder pipeline.Embedder

	closers []func()
}

func (c Collaborators) Close() {
	for _, closeFn := range c.closers {
		closeFn()
	}
}

// NewCollaborators picks engines from NER_PROVIDER (rule, gemini, openai,
// sidecar) and EMBEDDING_PROVIDER (hash, gemini, openai, sidecar). OCR always
// runs through Tesseract.
func NewCollaborators(log *logrus.Logger) (Collaborators, error) {
	return newCollaborators(log, os.Getenv("NER_PROVIDER"), os.Getenv("EMBEDDING_PROVIDER"))
}

func newCollaborators(log *logrus.Logger, nerProvider, embeddingProvider string) (Collaborators, error) {
	c := Collaborators{OCR: tesseract.NewEngine()}

	var (
		geminiClient gemini.IGemini
		openaiClient openai.IOpenAI
		sidecar      websocketPkg.IWebsocket
	)

	useGemini := func() (gemini.IGemini, error) {
		if geminiClient == nil {
			client, err := gemini.NewGeminiClient()
			if err != nil {
				return nil, err
			}
			geminiClient = client
			c.closers = append(c.closers, client.Close)
		}
		return geminiClient, nil
	}
	useOpenAI := func() openai.IOpenAI {
		if openaiClient == nil {
			openaiClient = openai.NewOpenAI()
		}
		return openaiClient
	}
	useSidecar := func() websocketPkg.IWebsocket {
		if sidecar == nil {
			sidecar = websocketPkg.NewSidecarClient(log)
			c.closers = append(c.closers, sidecar.CloseConnections)
		}
		return sidecar
	}

	switch strings.ToLower(nerProvider) {
	case "", "rule":
		c.NER = nlp.NewRuleRecognizer()
	case "gemini":
		client, err := useGemini()
		if err != nil {
			return Collaborators{}, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		c.NER = client
	case "openai":
		c.NER = useOpenAI()
	case "sidecar":
		c.NER = useSidecar()
	default:
		return Collaborators{}, fmt.Errorf("%w: NER_PROVIDER=%q", ErrUnknownProvider, nerProvider)
	}

	switch strings.ToLower(embeddingProvider) {
	case "", "hash":
		c.Embedder = nlp.NewHashEmbedder(0)
	case "gemini":
		client, err := useGemini()
		if err != nil {
			c.Close()
			return Collaborators{}, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		c.Embedder = client
	case "openai":
		c.Embedder = useOpenAI()
	case "sidecar":
		c.Embedder = useSidecar()
	default:
		c.Close()
		return Collaborators{}, fmt.Errorf("%w: EMBEDDING_PROVIDER=%q", ErrUnknownProvider, embeddingProvider)
	}

	log.WithFields(logrus.Fields{
		"ner":       providerName(nerProvider, "rule"),
		"embedding": providerName(embeddingProvider, "hash"),
	}).Debug("Pipeline collaborators ready")

	return c, nil
}

func providerName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return strings.ToLower(name)
}
