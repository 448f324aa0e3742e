package redactionService

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"SigSecure/internal/api/redaction"
	"SigSecure/internal/entity"
	"SigSecure/internal/pipeline"
	contextPkg "SigSecure/pkg/context"
	"SigSecure/pkg/pdf"
	"SigSecure/pkg/redis"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	defaultMode  = string(entity.ModeNone)
	defaultStyle = "black"
)

func (s *redactionService) Redact(ctx context.Context, req redaction.RedactRequest, file *multipart.FileHeader) (redaction.RedactResult, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if req.PrivacyMode == "" {
		req.PrivacyMode = defaultMode
	}
	if req.RedactionStyle == "" {
		req.RedactionStyle = defaultStyle
	}

	documentID, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate ULID")
		return redaction.RedactResult{}, err
	}

	rec := entity.AuditRecord{
		ID:               documentID,
		Timestamp:        time.Now().UTC(),
		File:             "unknown",
		PrivacyMode:      req.PrivacyMode,
		RedactionStyle:   req.RedactionStyle,
		EntitiesRedacted: map[string]int{},
		HighlightOnly:    req.HighlightOnly,
	}

	if err := s.utils.ValidatePDFFile(file); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Rejected upload")
		s.writeAudit(ctx, rec, err)
		return redaction.RedactResult{}, err
	}

	fileName := s.utils.SanitizeFileName(file.Filename)
	rec.File = fileName

	workDir := s.workDir(documentID)
	inputPath := filepath.Join(workDir, fileName)
	if err := saveUpload(file, inputPath); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"file":       fileName,
			"error":      err.Error(),
		}).Error("Failed to store upload")
		s.writeAudit(ctx, rec, err)
		_ = os.RemoveAll(workDir)
		return redaction.RedactResult{}, redaction.ErrStoreUpload
	}
	defer os.Remove(inputPath)

	if err := validateDocument(inputPath); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"file":       fileName,
			"error":      err.Error(),
		}).Warn("Uploaded file failed PDF validation")
		s.writeAudit(ctx, rec, err)
		_ = os.RemoveAll(workDir)
		return redaction.RedactResult{}, err
	}

	outputPath := filepath.Join(workDir, "redacted_"+fileName)
	result, err := s.redactor.Run(ctx, pipeline.Request{
		InputPath:     inputPath,
		OutputPath:    outputPath,
		FileName:      fileName,
		Mode:          entity.PrivacyMode(req.PrivacyMode),
		Style:         pipeline.ParseStyle(req.RedactionStyle),
		HighlightOnly: req.HighlightOnly,
	})
	if err != nil {
		s.writeAudit(ctx, rec, err)
		_ = os.RemoveAll(workDir)
		if errors.Is(err, pipeline.ErrUnknownMode) || errors.Is(err, pdf.ErrInvalidPDF) {
			return redaction.RedactResult{}, err
		}
		return redaction.RedactResult{}, redaction.ErrRedactionFailed
	}

	counts := make(map[string]int, len(result.EntityCounts))
	for label, n := range result.EntityCounts {
		counts[string(label)] = n
	}
	rec.SignaturesDetected = result.SignaturesDetected
	rec.EntitiesRedacted = counts
	s.writeAudit(ctx, rec, nil)

	retained := false
	if s.tickets != nil {
		if err := s.tickets.SetTicket(ctx, documentID, outputPath, s.cfg.TicketTTL); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id":  requestID,
				"document_id": documentID,
				"error":       err.Error(),
			}).Warn("Failed to store download ticket")
		} else {
			retained = true
		}
	}

	if s.archive != nil {
		if _, err := s.archive.UploadFile(ctx, archiveKey(documentID), outputPath); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id":  requestID,
				"document_id": documentID,
				"error":       err.Error(),
			}).Warn("Failed to archive redacted document")
		}
	}

	return redaction.RedactResult{
		DocumentID:         documentID,
		FileName:           filepath.Base(outputPath),
		OutputPath:         outputPath,
		SignaturesDetected: result.SignaturesDetected,
		EntitiesRedacted:   counts,
		Retained:           retained,
	}, nil
}

// Release removes the working directory of a result that has no download
// ticket, once the response has been written.
func (s *redactionService) Release(ctx context.Context, documentID string) error {
	if err := checkDocumentID(documentID); err != nil {
		return err
	}

	if err := os.RemoveAll(s.workDir(documentID)); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":  contextPkg.GetRequestID(ctx),
			"document_id": documentID,
			"error":       err.Error(),
		}).Warn("Failed to remove released document")
		return err
	}
	return nil
}

func (s *redactionService) Download(ctx context.Context, documentID string) (string, error) {
	if err := checkDocumentID(documentID); err != nil {
		return "", err
	}
	if s.tickets == nil {
		return "", redaction.ErrDocumentNotFound
	}

	path, err := s.tickets.GetTicket(ctx, documentID)
	if err != nil {
		if errors.Is(err, redis.ErrTicketNotFound) {
			return "", redaction.ErrDocumentNotFound
		}
		return "", err
	}

	if _, err := os.Stat(path); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":  contextPkg.GetRequestID(ctx),
			"document_id": documentID,
			"error":       err.Error(),
		}).Warn("Download ticket points at a missing file")
		return "", redaction.ErrDocumentNotFound
	}

	return path, nil
}

func (s *redactionService) DownloadURL(ctx context.Context, documentID string) (redaction.DownloadURLResponse, error) {
	if err := checkDocumentID(documentID); err != nil {
		return redaction.DownloadURLResponse{}, err
	}
	if s.archive == nil {
		return redaction.DownloadURLResponse{}, redaction.ErrArchiveDisabled
	}

	url, err := s.archive.PresignUrl(archiveKey(documentID), s.cfg.URLExpiry)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":  contextPkg.GetRequestID(ctx),
			"document_id": documentID,
			"error":       err.Error(),
		}).Error("Failed to presign archive URL")
		return redaction.DownloadURLResponse{}, err
	}

	return redaction.DownloadURLResponse{
		DocumentID: documentID,
		URL:        url,
		ExpiresIn:  int(s.cfg.URLExpiry.Seconds()),
	}, nil
}

// Delete drops the local copy, the download ticket and the archived object.
func (s *redactionService) Delete(ctx context.Context, documentID string) error {
	requestID := contextPkg.GetRequestID(ctx)

	if err := checkDocumentID(documentID); err != nil {
		return err
	}

	workDir := s.workDir(documentID)
	if _, err := os.Stat(workDir); err != nil {
		return redaction.ErrDocumentNotFound
	}
	if err := os.RemoveAll(workDir); err != nil {
		return err
	}

	if s.tickets != nil {
		if err := s.tickets.DeleteTicket(ctx, documentID); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id":  requestID,
				"document_id": documentID,
				"error":       err.Error(),
			}).Warn("Failed to delete download ticket")
		}
	}

	if s.archive != nil {
		if err := s.archive.DeleteFile(archiveKey(documentID)); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id":  requestID,
				"document_id": documentID,
				"error":       err.Error(),
			}).Warn("Failed to delete archived document")
		}
	}

	return nil
}

func (s *redactionService) AuditLogs(ctx context.Context) ([]map[string]interface{}, error) {
	records, err := s.auditLog.ReadAll()
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Failed to read audit log")
		return nil, redaction.ErrAuditUnavailable
	}
	return records, nil
}

func (s *redactionService) AuditRecord(ctx context.Context, documentID string) (entity.AuditRecord, error) {
	if err := checkDocumentID(documentID); err != nil {
		return entity.AuditRecord{}, err
	}
	if s.repo == nil {
		return entity.AuditRecord{}, redaction.ErrAuditMirrorDisabled
	}

	client, err := s.repo.NewClient(false)
	if err != nil {
		return entity.AuditRecord{}, err
	}

	return client.Audit.GetAuditRecordByID(ctx, documentID)
}

// writeAudit appends rec to the audit log and mirrors it into Postgres
// when configured. A non-nil cause marks the record as failed.
func (s *redactionService) writeAudit(ctx context.Context, rec entity.AuditRecord, cause error) {
	requestID := contextPkg.GetRequestID(ctx)

	if cause != nil {
		msg := cause.Error()
		rec.Error = &msg
		rec.SignaturesDetected = 0
		rec.EntitiesRedacted = map[string]int{}
	}

	if err := s.auditLog.Write(rec); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"file":       rec.File,
			"error":      err.Error(),
		}).Error("Failed to append audit record")
	}

	if s.repo == nil {
		return
	}

	client, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to open audit mirror")
		return
	}
	if err := client.Audit.CreateAuditRecord(ctx, rec); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to mirror audit record")
	}
}

// checkDocumentID accepts only canonical ULIDs, the form every document ID
// is generated in. Anything else, including "." and "..", names no document.
func checkDocumentID(documentID string) error {
	if _, err := ulid.ParseStrict(documentID); err != nil {
		return redaction.ErrDocumentNotFound
	}
	return nil
}

func (s *redactionService) workDir(documentID string) string {
	return filepath.Join(s.cfg.StorageDir, documentID)
}

func archiveKey(documentID string) string {
	return fmt.Sprintf("redactions/%s.pdf", documentID)
}

func saveUpload(file *multipart.FileHeader, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func validateDocument(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return pdf.Validate(f)
}
