package pipeline

import "time"

// Config holds every tunable constant of the pipeline. Start from
// DefaultConfig: Normalize replaces unset or out-of-range values with the
// defaults, except for the two thresholds where zero is a real setting.
type Config struct {
	Detection DetectionConfig `yaml:"detection"`
	Context   ContextConfig   `yaml:"context"`
	Relevance RelevanceConfig `yaml:"relevance"`
	Entities  EntityConfig    `yaml:"entities"`
	Decision  DecisionConfig  `yaml:"decision"`
	Render    RenderConfig    `yaml:"render"`
	Timeout   time.Duration   `yaml:"collaborator_timeout"`
	NoTimeout bool            `yaml:"disable_timeout"`
}

// DetectionConfig sizes are raster pixels at DPI. MinRegionWidth and
// MinRegionHeight also decide which single contours count as pen strokes.
type DetectionConfig struct {
	DPI                  float64 `yaml:"dpi"`
	InkThreshold         uint8   `yaml:"ink_threshold"`
	DilateIterations     int     `yaml:"dilate_iterations"`
	MinContourArea       float64 `yaml:"min_contour_area"`
	ClusterRadius        float64 `yaml:"cluster_radius"`
	AttachRadius         float64 `yaml:"attach_radius"`
	MinRegionWidth       int     `yaml:"min_region_width"`
	MinRegionHeight      int     `yaml:"min_region_height"`
	HeaderBand           float64 `yaml:"header_band"`
	WitnessNeighborhood  float64 `yaml:"witness_neighborhood"`
	WitnessToken         string  `yaml:"witness_token"`
	PhotoAspectTolerance float64 `yaml:"photo_aspect_tolerance"`
	PhotoMinArea         float64 `yaml:"photo_min_area"`
}

// ContextConfig.ConfidenceThreshold of zero turns the OCR retry off.
type ContextConfig struct {
	Radius              float64 `yaml:"radius"`
	Zoom                float64 `yaml:"zoom"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	RetryContrast       float64 `yaml:"retry_contrast"`
	RetryDenoiseSigma   float64 `yaml:"retry_denoise_sigma"`
}

// RelevanceConfig.Threshold is a cosine in [-1, 1]; -1 keeps every sentence.
type RelevanceConfig struct {
	Anchor    string  `yaml:"anchor"`
	Threshold float64 `yaml:"threshold"`
}

type EntityConfig struct {
	Boilerplate []string `yaml:"boilerplate"`
	FuzzyRatio  float64  `yaml:"fuzzy_ratio"`
	Lookahead   int      `yaml:"lookahead"`
}

type DecisionConfig struct {
	ExemptSubstrings []string `yaml:"exempt_substrings"`
	ExemptTokens     []string `yaml:"exempt_tokens"`
}

type RenderConfig struct {
	BlurSigma    float64 `yaml:"blur_sigma"`
	BlurZoom     float64 `yaml:"blur_zoom"`
	Provenance   string  `yaml:"provenance"`
	OutlineWidth float64 `yaml:"outline_width"`
}

func DefaultConfig() Config {
	return Config{
		Detection: DetectionConfig{
			DPI:                  200,
			InkThreshold:         150,
			DilateIterations:     0,
			MinContourArea:       20,
			ClusterRadius:        60,
			AttachRadius:         30,
			MinRegionWidth:       50,
			MinRegionHeight:      20,
			HeaderBand:           0.10,
			WitnessNeighborhood:  72,
			WitnessToken:         "witness",
			PhotoAspectTolerance: 0.30,
			PhotoMinArea:         4000,
		},
		Context: ContextConfig{
			Radius:              100,
			Zoom:                3,
			ConfidenceThreshold: 0.60,
			RetryContrast:       40,
			RetryDenoiseSigma:   0.6,
		},
		Relevance: RelevanceConfig{
			Anchor:    "signer name",
			Threshold: 0.30,
		},
		Entities: EntityConfig{
			Boilerplate: []string{"page", "document"},
			FuzzyRatio:  0.80,
			Lookahead:   2,
		},
		Decision: DecisionConfig{
			ExemptSubstrings: []string{"doctor", "md"},
			ExemptTokens:     []string{"dr"},
		},
		Render: RenderConfig{
			BlurSigma:    8,
			BlurZoom:     2,
			Provenance:   "Redacted by SigSecure",
			OutlineWidth: 1.5,
		},
		Timeout: 60 * time.Second,
	}
}

// Normalize fills unset fields from DefaultConfig.
func (c Config) Normalize() Config {
	d := DefaultConfig()

	if c.Detection.DPI <= 0 {
		c.Detection.DPI = d.Detection.DPI
	}
	if c.Detection.InkThreshold == 0 {
		c.Detection.InkThreshold = d.Detection.InkThreshold
	}
	if c.Detection.DilateIterations < 0 {
		c.Detection.DilateIterations = 0
	}
	if c.Detection.MinContourArea <= 0 {
		c.Detection.MinContourArea = d.Detection.MinContourArea
	}
	if c.Detection.ClusterRadius <= 0 {
		c.Detection.ClusterRadius = d.Detection.ClusterRadius
	}
	if c.Detection.AttachRadius < 0 {
		c.Detection.AttachRadius = d.Detection.AttachRadius
	}
	if c.Detection.MinRegionWidth <= 0 {
		c.Detection.MinRegionWidth = d.Detection.MinRegionWidth
	}
	if c.Detection.MinRegionHeight <= 0 {
		c.Detection.MinRegionHeight = d.Detection.MinRegionHeight
	}
	if c.Detection.HeaderBand < 0 || c.Detection.HeaderBand >= 1 {
		c.Detection.HeaderBand = d.Detection.HeaderBand
	}
	if c.Detection.WitnessNeighborhood <= 0 {
		c.Detection.WitnessNeighborhood = d.Detection.WitnessNeighborhood
	}
	if c.Detection.WitnessToken == "" {
		c.Detection.WitnessToken = d.Detection.WitnessToken
	}
	if c.Detection.PhotoAspectTolerance <= 0 {
		c.Detection.PhotoAspectTolerance = d.Detection.PhotoAspectTolerance
	}
	if c.Detection.PhotoMinArea <= 0 {
		c.Detection.PhotoMinArea = d.Detection.PhotoMinArea
	}

	if c.Context.Radius <= 0 {
		c.Context.Radius = d.Context.Radius
	}
	if c.Context.Zoom <= 0 {
		c.Context.Zoom = d.Context.Zoom
	}
	if c.Context.ConfidenceThreshold < 0 || c.Context.ConfidenceThreshold > 1 {
		c.Context.ConfidenceThreshold = d.Context.ConfidenceThreshold
	}
	if c.Context.RetryContrast == 0 {
		c.Context.RetryContrast = d.Context.RetryContrast
	}
	if c.Context.RetryDenoiseSigma <= 0 {
		c.Context.RetryDenoiseSigma = d.Context.RetryDenoiseSigma
	}

	if c.Relevance.Anchor == "" {
		c.Relevance.Anchor = d.Relevance.Anchor
	}
	if c.Relevance.Threshold < -1 || c.Relevance.Threshold > 1 {
		c.Relevance.Threshold = d.Relevance.Threshold
	}

	if c.Entities.Boilerplate == nil {
		c.Entities.Boilerplate = d.Entities.Boilerplate
	}
	if c.Entities.FuzzyRatio <= 0 || c.Entities.FuzzyRatio > 1 {
		c.Entities.FuzzyRatio = d.Entities.FuzzyRatio
	}
	if c.Entities.Lookahead < 0 {
		c.Entities.Lookahead = d.Entities.Lookahead
	}

	if c.Decision.ExemptSubstrings == nil && c.Decision.ExemptTokens == nil {
		c.Decision = d.Decision
	}

	if c.Render.BlurSigma <= 0 {
		c.Render.BlurSigma = d.Render.BlurSigma
	}
	if c.Render.BlurZoom <= 0 {
		c.Render.BlurZoom = d.Render.BlurZoom
	}
	if c.Render.Provenance == "" {
		c.Render.Provenance = d.Render.Provenance
	}
	if c.Render.OutlineWidth <= 0 {
		c.Render.OutlineWidth = d.Render.OutlineWidth
	}

	if c.NoTimeout {
		c.Timeout = 0
	} else if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}

	return c
}
