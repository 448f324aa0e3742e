package redaction

import "SigSecure/pkg/response"

var (
	ErrNoFile           = response.NewError(400, "no file selected")
	ErrInvalidFileType  = response.NewError(400, "only PDF files are supported")
	ErrFileTooLarge     = response.NewError(413, "file too large")
	ErrInvalidPDF       = response.NewError(422, "uploaded file is not a readable PDF")
	ErrInvalidMode      = response.NewError(400, "invalid privacy mode")
	ErrDocumentNotFound = response.NewError(404, "document not found or download expired")
	ErrArchiveDisabled  = response.NewError(404, "document archive is not configured")
	ErrRedactionFailed  = response.NewError(500, "an error occurred while processing the document")
	ErrAuditUnavailable = response.NewError(500, "failed to read audit log")
	ErrStoreUpload      = response.NewError(500, "failed to store uploaded file")
)

var ErrAuditMirrorDisabled = response.NewError(404, "audit database is not configured")
