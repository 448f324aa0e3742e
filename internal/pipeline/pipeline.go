package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"SigSecure/internal/entity"

	"github.com/sirupsen/logrus"
)

const (
	EventOCRRetry  = "ocr_retry"
	EventOCROutput = "ocr_output"
	EventNEROutput = "ner_output"
)

var ErrUnknownMode = errors.New("unknown privacy mode")

type Request struct {
	InputPath     string
	OutputPath    string
	FileName      string
	Mode          entity.PrivacyMode
	Style         entity.RedactionStyle
	HighlightOnly bool
}

type Pipeline struct {
	opener    DocumentOpener
	detector  *Detector
	extractor *ContextExtractor
	relevance *RelevanceFilter
	entities  *EntityExtractor
	aligner   Aligner
	renderer  *Renderer
	exemption RoleExemption
	diag      Diagnostics
	log       *logrus.Logger
}

type Option func(*Pipeline)

func WithDiagnostics(d Diagnostics) Option {
	return func(p *Pipeline) {
		p.diag = d
	}
}

func WithExemption(e RoleExemption) Option {
	return func(p *Pipeline) {
		p.exemption = e
	}
}

func New(cfg Config, opener DocumentOpener, ocr OCREngine, ner EntityRecognizer, embedder Embedder, log *logrus.Logger, opts ...Option) *Pipeline {
	cfg = cfg.Normalize()

	p := &Pipeline{
		opener:    opener,
		detector:  NewDetector(cfg, ocr, log),
		extractor: NewContextExtractor(cfg, ocr, log),
		relevance: NewRelevanceFilter(cfg, embedder, log),
		entities:  NewEntityExtractor(cfg, ner, log),
		aligner:   NewAligner(cfg),
		renderer:  NewRenderer(cfg, log),
		exemption: NewKeywordExemption(cfg),
		log:       log,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Run redacts one document. Any fatal error removes the partial output and
// returns a zero result.
func (p *Pipeline) Run(ctx context.Context, req Request) (entity.PipelineResult, error) {
	result, err := p.run(ctx, req)
	if err != nil {
		if rmErr := os.Remove(req.OutputPath); rmErr != nil && !os.IsNotExist(rmErr) {
			p.log.WithFields(logrus.Fields{
				"file":  req.FileName,
				"path":  req.OutputPath,
				"error": rmErr.Error(),
			}).Warn("Failed to remove partial output")
		}
		p.log.WithFields(logrus.Fields{
			"file":  req.FileName,
			"mode":  req.Mode,
			"error": err.Error(),
		}).Error("Redaction pipeline failed")
		return entity.PipelineResult{}, err
	}
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, req Request) (entity.PipelineResult, error) {
	switch req.Mode {
	case entity.ModeNone, entity.ModeSigner, entity.ModeWitness, entity.ModeMedical:
	case "":
		req.Mode = entity.ModeNone
	default:
		return entity.PipelineResult{}, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}
	engine := NewEngine(req.Mode, req.Style, req.HighlightOnly, p.exemption)

	doc, err := p.opener.Open(req.InputPath)
	if err != nil {
		return entity.PipelineResult{}, fmt.Errorf("open document: %w", err)
	}
	defer doc.Close()

	detector := p.detector
	if !engine.NeedsType() {
		detector = detector.Untyped()
	}
	regions := detector.DetectDocument(ctx, doc)
	byPage := make(map[int][]entity.SignatureRegion)
	for _, r := range regions {
		byPage[r.Page] = append(byPage[r.Page], r)
	}

	result := entity.PipelineResult{
		OutputPath:         req.OutputPath,
		EntityCounts:       make(map[entity.EntityLabel]int),
		SignaturesDetected: len(regions),
		Decisions:          []entity.RedactionDecision{},
	}

	for i := 0; i < doc.PageCount(); i++ {
		if err := ctx.Err(); err != nil {
			return entity.PipelineResult{}, err
		}

		page, err := doc.Page(i)
		if err != nil {
			return entity.PipelineResult{}, fmt.Errorf("load page %d: %w", i, err)
		}

		var decisions []entity.RedactionDecision
		for _, region := range byPage[page.Index()] {
			found, err := p.processRegion(ctx, page, region, engine, req, result.EntityCounts)
			if err != nil {
				return entity.PipelineResult{}, fmt.Errorf("page %d: %w", i, err)
			}
			decisions = append(decisions, found...)
		}

		if err := p.renderer.RenderPage(page, decisions, req.HighlightOnly); err != nil {
			return entity.PipelineResult{}, err
		}
		result.Decisions = append(result.Decisions, decisions...)
	}

	if err := doc.Save(req.OutputPath); err != nil {
		return entity.PipelineResult{}, fmt.Errorf("save document: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"file":       req.FileName,
		"mode":       req.Mode,
		"signatures": result.SignaturesDetected,
		"decisions":  len(result.Decisions),
	}).Info("Document redacted")

	return result, nil
}

func (p *Pipeline) processRegion(ctx context.Context, page Page, region entity.SignatureRegion, engine *Engine, req Request, counts map[entity.EntityLabel]int) ([]entity.RedactionDecision, error) {
	// Outside medical mode the region type alone settles the outcome, so
	// regions that cannot act skip OCR entirely.
	if req.Mode != entity.ModeMedical && !engine.Acts(region.Type, "") {
		return nil, nil
	}

	window, err := p.extractor.Extract(ctx, page, region)
	if err != nil {
		return nil, err
	}
	text := window.Text()
	p.recordWindow(req.FileName, region.Page, window, text)

	var decisions []entity.RedactionDecision
	if d, ok := engine.DecidePhoto(region); ok {
		decisions = append(decisions, d)
	}

	if !engine.Acts(region.Type, text) {
		return decisions, nil
	}
	if d, ok := engine.DecideSignature(region, text); ok {
		decisions = append(decisions, d)
	}

	sentences := p.relevance.Filter(ctx, text)
	ents, spans, err := p.entities.Extract(ctx, sentences)
	if err != nil {
		return nil, fmt.Errorf("entity recognition: %w", err)
	}
	p.record(req.FileName, region.Page, EventNEROutput, map[string]interface{}{
		"sentences": sentences,
		"entities":  spans,
	})

	for _, ent := range ents {
		target, ok := p.aligner.Locate(window, ent, page.Bounds())
		if !ok {
			p.log.WithFields(logrus.Fields{
				"page":   region.Page,
				"label":  ent.Label,
				"tokens": len(ent.TokenSpan),
			}).Debug("Entity could not be aligned to OCR words")
			continue
		}
		if d, ok := engine.DecideEntity(region, text, ent, target); ok {
			decisions = append(decisions, d)
			counts[ent.Label]++
		}
	}

	return decisions, nil
}

func (p *Pipeline) recordWindow(file string, page int, w ContextWindow, text string) {
	if w.Retried {
		p.record(file, page, EventOCRRetry, map[string]interface{}{
			"first_mean_confidence": w.FirstPassMean,
			"mean_confidence":       w.MeanConfidence,
		})
	}
	p.record(file, page, EventOCROutput, map[string]interface{}{
		"text":            text,
		"words":           len(w.Words),
		"mean_confidence": w.MeanConfidence,
	})
}

func (p *Pipeline) record(file string, page int, event string, detail interface{}) {
	if p.diag == nil {
		return
	}
	p.diag.Record(entity.DiagnosticRecord{
		Timestamp: time.Now().UTC(),
		Event:     event,
		File:      file,
		Page:      page,
		Detail:    detail,
	})
}
