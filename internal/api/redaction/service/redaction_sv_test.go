package redactionService

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"SigSecure/internal/api/redaction"
	"SigSecure/internal/entity"
	"SigSecure/internal/pipeline"
	"SigSecure/pkg/audit"
	"SigSecure/pkg/pdf"
	"SigSecure/pkg/redis"
	"SigSecure/pkg/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-pdf/fpdf"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unknownID = "01ARZ3NDEKTSV4RRFFQ69G5FAV"

type fakeRedactor struct {
	requests []pipeline.Request
	err      error
}

func (f *fakeRedactor) Run(ctx context.Context, req pipeline.Request) (entity.PipelineResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return entity.PipelineResult{}, f.err
	}
	if err := os.WriteFile(req.OutputPath, []byte("%PDF-1.7\n"), 0o644); err != nil {
		return entity.PipelineResult{}, err
	}
	return entity.PipelineResult{
		OutputPath:         req.OutputPath,
		EntityCounts:       map[entity.EntityLabel]int{entity.LabelPerson: 2, entity.LabelDate: 1},
		SignaturesDetected: 3,
	}, nil
}

type fakeArchive struct {
	uploaded map[string]string
	deleted  []string
}

func (f *fakeArchive) UploadFile(ctx context.Context, key string, filePath string) (string, error) {
	f.uploaded[key] = filePath
	return "https://bucket.example/" + key, nil
}

func (f *fakeArchive) PresignUrl(key string, expiry time.Duration) (string, error) {
	return "https://bucket.example/" + key + "?signed", nil
}

func (f *fakeArchive) DeleteFile(key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type fixture struct {
	svc      IRedactionService
	redactor *fakeRedactor
	archive  *fakeArchive
	auditLog audit.ILog
	mr       *miniredis.Miniredis
	storage  string
}

func quiet() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newFixture(t *testing.T) *fixture {
	log := quiet()
	mr := miniredis.RunT(t)
	tickets := redis.NewWithClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), log)
	t.Cleanup(func() { _ = tickets.Close() })

	auditLog, err := audit.New(filepath.Join(t.TempDir(), "audit_log.json"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = auditLog.Close() })

	f := &fixture{
		redactor: &fakeRedactor{},
		archive:  &fakeArchive{uploaded: map[string]string{}},
		auditLog: auditLog,
		mr:       mr,
		storage:  t.TempDir(),
	}
	f.svc = NewRedactionService(log, Config{StorageDir: f.storage}, f.redactor, auditLog, tickets, f.archive, nil, utils.New(0))
	return f
}

func letterPDF(t *testing.T) []byte {
	doc := fpdf.NewCustom(&fpdf.InitType{UnitStr: "pt", Size: fpdf.SizeType{Wd: 612, Ht: 792}})
	doc.AddPage()
	doc.Rect(100, 600, 200, 40, "F")

	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func upload(t *testing.T, name string, content []byte) *multipart.FileHeader {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(10<<20))
	return req.MultipartForm.File["file"][0]
}

func TestRedact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Redact(ctx, redaction.RedactRequest{PrivacyMode: "signer"}, upload(t, "contract.pdf", letterPDF(t)))
	require.NoError(t, err)

	assert.NotEmpty(t, res.DocumentID)
	assert.Equal(t, "redacted_contract.pdf", res.FileName)
	assert.Equal(t, 3, res.SignaturesDetected)
	assert.Equal(t, map[string]int{"PERSON": 2, "DATE": 1}, res.EntitiesRedacted)
	assert.FileExists(t, res.OutputPath)

	require.Len(t, f.redactor.requests, 1)
	req := f.redactor.requests[0]
	assert.Equal(t, entity.ModeSigner, req.Mode)
	assert.Equal(t, entity.StyleFill, req.Style)
	assert.Equal(t, "contract.pdf", req.FileName)
	assert.NoFileExists(t, req.InputPath)

	assert.True(t, f.mr.Exists("sigsecure:download:"+res.DocumentID))
	assert.Equal(t, res.OutputPath, f.archive.uploaded["redactions/"+res.DocumentID+".pdf"])

	records, err := f.svc.AuditLogs(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "contract.pdf", records[0]["file"])
	assert.Equal(t, "signer", records[0]["privacy_mode"])
	assert.Equal(t, "black", records[0]["redaction_style"])
	assert.EqualValues(t, 3, records[0]["signatures_detected"])
	assert.Equal(t, map[string]interface{}{"PERSON": float64(2), "DATE": float64(1)}, records[0]["entities_redacted"])
	assert.Nil(t, records[0]["error"])
}

func TestRedactRejectsUploads(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content []byte
		wantErr error
	}{
		{name: "wrong extension", file: "notes.txt", content: []byte("%PDF-1.4"), wantErr: utils.ErrNotPDF},
		{name: "no pdf header", file: "fake.pdf", content: []byte("hello"), wantErr: utils.ErrNotPDF},
		{name: "broken pdf", file: "broken.pdf", content: []byte("%PDF-1.4\nthis is not a pdf"), wantErr: pdf.ErrInvalidPDF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.svc.Redact(context.Background(), redaction.RedactRequest{}, upload(t, tt.file, tt.content))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.redactor.requests)

			entries, err := os.ReadDir(f.storage)
			require.NoError(t, err)
			assert.Empty(t, entries)

			records, err := f.svc.AuditLogs(context.Background())
			require.NoError(t, err)
			require.Len(t, records, 1)
			assert.NotNil(t, records[0]["error"])
			assert.Equal(t, "none", records[0]["privacy_mode"])
		})
	}
}

func TestRedactNoFile(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Redact(context.Background(), redaction.RedactRequest{}, nil)
	assert.ErrorIs(t, err, utils.ErrNoFile)
}

func TestRedactPipelineFailure(t *testing.T) {
	f := newFixture(t)
	f.redactor.err = errors.New("ocr engine crashed")

	_, err := f.svc.Redact(context.Background(), redaction.RedactRequest{PrivacyMode: "witness", RedactionStyle: "blur"}, upload(t, "scan.pdf", letterPDF(t)))
	assert.ErrorIs(t, err, redaction.ErrRedactionFailed)

	entries, err := os.ReadDir(f.storage)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, f.archive.uploaded)

	records, err := f.svc.AuditLogs(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "scan.pdf", records[0]["file"])
	assert.Equal(t, "ocr engine crashed", records[0]["error"])
	assert.EqualValues(t, 0, records[0]["signatures_detected"])
}

func TestRedactUnknownModeKeepsCause(t *testing.T) {
	f := newFixture(t)
	f.redactor.err = pipeline.ErrUnknownMode

	_, err := f.svc.Redact(context.Background(), redaction.RedactRequest{PrivacyMode: "lawyer"}, upload(t, "scan.pdf", letterPDF(t)))
	assert.ErrorIs(t, err, pipeline.ErrUnknownMode)
}

func TestDownload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Redact(ctx, redaction.RedactRequest{}, upload(t, "a.pdf", letterPDF(t)))
	require.NoError(t, err)

	path, err := f.svc.Download(ctx, res.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, res.OutputPath, path)

	_, err = f.svc.Download(ctx, unknownID)
	assert.ErrorIs(t, err, redaction.ErrDocumentNotFound)

	f.mr.FastForward(2 * time.Hour)
	_, err = f.svc.Download(ctx, res.DocumentID)
	assert.ErrorIs(t, err, redaction.ErrDocumentNotFound)
}

func TestDownloadWithoutTickets(t *testing.T) {
	auditLog, err := audit.New(filepath.Join(t.TempDir(), "audit.json"), quiet())
	require.NoError(t, err)
	svc := NewRedactionService(quiet(), Config{StorageDir: t.TempDir()}, &fakeRedactor{}, auditLog, nil, nil, nil, utils.New(0))

	_, err = svc.Download(context.Background(), unknownID)
	assert.ErrorIs(t, err, redaction.ErrDocumentNotFound)

	_, err = svc.DownloadURL(context.Background(), unknownID)
	assert.ErrorIs(t, err, redaction.ErrArchiveDisabled)

	_, err = svc.AuditRecord(context.Background(), unknownID)
	assert.ErrorIs(t, err, redaction.ErrAuditMirrorDisabled)
}

func TestRedactWithoutTicketsIsReleased(t *testing.T) {
	auditLog, err := audit.New(filepath.Join(t.TempDir(), "audit.json"), quiet())
	require.NoError(t, err)
	t.Cleanup(func() { _ = auditLog.Close() })

	storage := t.TempDir()
	svc := NewRedactionService(quiet(), Config{StorageDir: storage}, &fakeRedactor{}, auditLog, nil, nil, nil, utils.New(0))
	ctx := context.Background()

	res, err := svc.Redact(ctx, redaction.RedactRequest{}, upload(t, "a.pdf", letterPDF(t)))
	require.NoError(t, err)
	assert.False(t, res.Retained)
	assert.FileExists(t, res.OutputPath)

	require.NoError(t, svc.Release(ctx, res.DocumentID))
	assert.NoDirExists(t, filepath.Dir(res.OutputPath))
	assert.DirExists(t, storage)
}

func TestRejectsMalformedDocumentIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Redact(ctx, redaction.RedactRequest{}, upload(t, "a.pdf", letterPDF(t)))
	require.NoError(t, err)
	assert.True(t, res.Retained)

	for _, id := range []string{".", "..", "", "../etc", "01hx/../..", strings.ToLower(res.DocumentID) + "/x"} {
		t.Run(id, func(t *testing.T) {
			assert.ErrorIs(t, f.svc.Delete(ctx, id), redaction.ErrDocumentNotFound)
			assert.ErrorIs(t, f.svc.Release(ctx, id), redaction.ErrDocumentNotFound)

			_, err := f.svc.Download(ctx, id)
			assert.ErrorIs(t, err, redaction.ErrDocumentNotFound)
			_, err = f.svc.DownloadURL(ctx, id)
			assert.ErrorIs(t, err, redaction.ErrDocumentNotFound)
			_, err = f.svc.AuditRecord(ctx, id)
			assert.ErrorIs(t, err, redaction.ErrDocumentNotFound)
		})
	}

	assert.DirExists(t, f.storage)
	assert.FileExists(t, res.OutputPath)
	assert.Empty(t, f.archive.deleted)
}

func TestDownloadURL(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.DownloadURL(context.Background(), unknownID)
	require.NoError(t, err)
	assert.Equal(t, unknownID, resp.DocumentID)
	assert.Equal(t, "https://bucket.example/redactions/"+unknownID+".pdf?signed", resp.URL)
	assert.Equal(t, 900, resp.ExpiresIn)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Redact(ctx, redaction.RedactRequest{}, upload(t, "a.pdf", letterPDF(t)))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, res.DocumentID))
	assert.NoFileExists(t, res.OutputPath)
	assert.False(t, f.mr.Exists("sigsecure:download:"+res.DocumentID))
	assert.Equal(t, []string{"redactions/" + res.DocumentID + ".pdf"}, f.archive.deleted)

	assert.ErrorIs(t, f.svc.Delete(ctx, res.DocumentID), redaction.ErrDocumentNotFound)

	for _, id := range []string{".", ".."} {
		assert.ErrorIs(t, f.svc.Delete(ctx, id), redaction.ErrDocumentNotFound)
	}
	assert.DirExists(t, f.storage)
}
