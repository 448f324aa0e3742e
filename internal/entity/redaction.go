package entity

import "SigSecure/pkg/geometry"

type EntityLabel string

const (
	LabelPerson   EntityLabel = "PERSON"
	LabelDate     EntityLabel = "DATE"
	LabelLocation EntityLabel = "LOCATION"
)

// EntitySpan is raw NER output before label filtering.
type EntitySpan struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

type Entity struct {
	Text      string      `json:"text"`
	Label     EntityLabel `json:"label"`
	TokenSpan []string    `json:"token_span"`
}

type PrivacyMode string

const (
	ModeNone    PrivacyMode = "none"
	ModeSigner  PrivacyMode = "signer"
	ModeWitness PrivacyMode = "witness"
	ModeMedical PrivacyMode = "medical"
)

type RedactionStyle string

const (
	StyleFill             RedactionStyle = "fill"
	StyleBlur             RedactionStyle = "blur"
	StyleWatermarkText    RedactionStyle = "watermarkText"
	StyleHighlightOutline RedactionStyle = "highlightOutline"
)

type SourceKind string

const (
	SourceSignature SourceKind = "signature"
	SourceEntity    SourceKind = "entity"
	SourcePhoto     SourceKind = "photo"
)

type RedactionDecision struct {
	Page       int            `json:"page"`
	TargetRect geometry.Rect  `json:"target_rect"`
	Style      RedactionStyle `json:"style"`
	SourceKind SourceKind     `json:"source_kind"`
	Label      EntityLabel    `json:"label,omitempty"`
}

type PipelineResult struct {
	OutputPath         string              `json:"output_path"`
	EntityCounts       map[EntityLabel]int `json:"entity_counts"`
	SignaturesDetected int                 `json:"signatures_detected"`
	Decisions          []RedactionDecision `json:"decisions"`
}
