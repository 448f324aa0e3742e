package entity

import (
	"image"

	"SigSecure/pkg/geometry"
)

type SignatureType string

const (
	SignerSignature  SignatureType = "signer"
	WitnessSignature SignatureType = "witness"
)

// SignatureRegion is one detected ink cluster. BBox is in page space.
type SignatureRegion struct {
	BBox    geometry.Rect `json:"bbox"`
	Page    int           `json:"page"`
	Type    SignatureType `json:"type"`
	IsPhoto bool          `json:"is_photo"`
}

// RawContour is an ink blob in detection-raster pixels.
type RawContour struct {
	BBox image.Rectangle
	Area float64
}

type OCRWord struct {
	Text       string        `json:"text"`
	BBox       geometry.Rect `json:"bbox"`
	Confidence float64       `json:"confidence"`
}
