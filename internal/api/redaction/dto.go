package redaction

// RedactRequest carries the multipart form fields of an upload. The file
// itself is read separately from the "file" part.
type RedactRequest struct {
	PrivacyMode    string `form:"privacy_mode" validate:"omitempty,oneof=none signer witness medical"`
	RedactionStyle string `form:"redaction_style" validate:"omitempty,oneof=black blur watermark"`
	HighlightOnly  bool   `form:"highlight_only"`
}

type RedactResult struct {
	DocumentID         string         `json:"document_id"`
	FileName           string         `json:"file_name"`
	OutputPath         string         `json:"-"`
	SignaturesDetected int            `json:"signatures_detected"`
	EntitiesRedacted   map[string]int `json:"entities_redacted"`
	// Retained is true when the output stays on disk behind a download
	// ticket. Otherwise it is released after the response is sent.
	Retained bool `json:"-"`
}

type DownloadURLResponse struct {
	DocumentID string `json:"document_id"`
	URL        string `json:"url"`
	ExpiresIn  int    `json:"expires_in"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
