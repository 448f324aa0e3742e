package entity

import "time"

// AuditRecord is written once per pipeline invocation.
type AuditRecord struct {
	ID                 string         `json:"id,omitempty" db:"id"`
	Timestamp          time.Time      `json:"timestamp" db:"created_at"`
	File               string         `json:"file" db:"file"`
	PrivacyMode        string         `json:"privacy_mode" db:"privacy_mode"`
	RedactionStyle     string         `json:"redaction_style" db:"redaction_style"`
	SignaturesDetected int            `json:"signatures_detected" db:"signatures_detected"`
	EntitiesRedacted   map[string]int `json:"entities_redacted" db:"-"`
	HighlightOnly      bool           `json:"highlight_only" db:"highlight_only"`
	Error              *string        `json:"error" db:"error"`
}

// DiagnosticRecord traces intermediate collaborator output (OCR retries,
// raw OCR text, raw NER spans).
type DiagnosticRecord struct {
	Timestamp time.Time   `json:"timestamp"`
	Event     string      `json:"event"`
	File      string      `json:"file"`
	Page      int         `json:"page"`
	Detail    interface{} `json:"detail"`
}
