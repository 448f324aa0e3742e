package pipeline

import (
	"strings"

	"SigSecure/internal/entity"
	"SigSecure/pkg/geometry"
	"SigSecure/pkg/nlp"
)

// RoleExemption decides from context text whether a region belongs to a role
// that medical mode leaves visible.
type RoleExemption interface {
	Exempt(contextText string) bool
}

// KeywordExemption is the keyword heuristic: any configured substring of the
// lower-cased text, or any configured whole token, exempts the region.
type KeywordExemption struct {
	Substrings []string
	Tokens     []string
}

func NewKeywordExemption(cfg Config) KeywordExemption {
	cfg = cfg.Normalize()
	return KeywordExemption{
		Substrings: cfg.Decision.ExemptSubstrings,
		Tokens:     cfg.Decision.ExemptTokens,
	}
}

func (k KeywordExemption) Exempt(contextText string) bool {
	lower := strings.ToLower(contextText)
	for _, s := range k.Substrings {
		if s != "" && strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	if len(k.Tokens) == 0 {
		return false
	}
	for _, field := range strings.Fields(nlp.Normalize(contextText)) {
		for _, t := range k.Tokens {
			if field == strings.ToLower(t) {
				return true
			}
		}
	}
	return false
}

// ParseStyle maps the upload contract's style names onto render styles.
// Unknown names fall back to fill.
func ParseStyle(name string) entity.RedactionStyle {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "blur":
		return entity.StyleBlur
	case "watermark", "watermarktext":
		return entity.StyleWatermarkText
	case "highlight", "highlightoutline":
		return entity.StyleHighlightOutline
	default:
		return entity.StyleFill
	}
}

// Engine applies the privacy-mode table. It holds no per-document state.
type Engine struct {
	Mode          entity.PrivacyMode
	Style         entity.RedactionStyle
	HighlightOnly bool
	Exemption     RoleExemption
}

func NewEngine(mode entity.PrivacyMode, style entity.RedactionStyle, highlightOnly bool, exemption RoleExemption) *Engine {
	return &Engine{Mode: mode, Style: style, HighlightOnly: highlightOnly, Exemption: exemption}
}

// Acts reports whether a region of type t with the given context text is
// redacted under the active mode. Entities inherit their region's answer.
func (e *Engine) Acts(t entity.SignatureType, contextText string) bool {
	switch e.Mode {
	case entity.ModeSigner:
		return t == entity.SignerSignature
	case entity.ModeWitness:
		return t == entity.WitnessSignature
	case entity.ModeMedical:
		return e.Exemption == nil || !e.Exemption.Exempt(contextText)
	default:
		return false
	}
}

// NeedsType reports whether outcomes depend on the signer/witness split.
func (e *Engine) NeedsType() bool {
	return e.Mode == entity.ModeSigner || e.Mode == entity.ModeWitness
}

// ActsOnPhoto is true only in medical mode; the exemption does not apply.
func (e *Engine) ActsOnPhoto() bool {
	return e.Mode == entity.ModeMedical
}

func (e *Engine) style() entity.RedactionStyle {
	if e.HighlightOnly {
		return entity.StyleHighlightOutline
	}
	if e.Style == "" {
		return entity.StyleFill
	}
	return e.Style
}

func (e *Engine) DecideSignature(region entity.SignatureRegion, contextText string) (entity.RedactionDecision, bool) {
	if !e.Acts(region.Type, contextText) {
		return entity.RedactionDecision{}, false
	}
	return e.decision(region.Page, region.BBox, entity.SourceSignature, ""), true
}

func (e *Engine) DecidePhoto(region entity.SignatureRegion) (entity.RedactionDecision, bool) {
	if !region.IsPhoto || !e.ActsOnPhoto() {
		return entity.RedactionDecision{}, false
	}
	return e.decision(region.Page, region.BBox, entity.SourcePhoto, ""), true
}

func (e *Engine) DecideEntity(region entity.SignatureRegion, contextText string, ent entity.Entity, target geometry.Rect) (entity.RedactionDecision, bool) {
	if !e.Acts(region.Type, contextText) {
		return entity.RedactionDecision{}, false
	}
	return e.decision(region.Page, target, entity.SourceEntity, ent.Label), true
}

func (e *Engine) decision(page int, r geometry.Rect, kind entity.SourceKind, label entity.EntityLabel) entity.RedactionDecision {
	return entity.RedactionDecision{
		Page:       page,
		TargetRect: r,
		Style:      e.style(),
		SourceKind: kind,
		Label:      label,
	}
}
