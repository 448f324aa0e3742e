package utils

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upload(t *testing.T, name string, content []byte) *multipart.FileHeader {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestValidatePDFFile(t *testing.T) {
	u := New(64)

	tests := []struct {
		name    string
		file    string
		content []byte
		want    error
	}{
		{"valid", "contract.PDF", []byte("%PDF-1.7\n%binary"), nil},
		{"wrong extension", "contract.docx", []byte("%PDF-1.7"), ErrNotPDF},
		{"wrong magic", "contract.pdf", []byte("PK\x03\x04"), ErrNotPDF},
		{"too large", "contract.pdf", bytes.Repeat([]byte("a"), 100), ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := u.ValidatePDFFile(upload(t, tt.file, tt.content))
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.ErrorIs(t, u.ValidatePDFFile(nil), ErrNoFile)
}

func TestNewULIDFromTimestamp(t *testing.T) {
	now := time.Now()
	id, err := New(0).NewULIDFromTimestamp(now)
	require.NoError(t, err)

	parsed, err := ulid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(now), parsed.Time())
}

func TestSanitizeFileName(t *testing.T) {
	u := New(0)
	assert.Equal(t, "scan.pdf", u.SanitizeFileName(`C:\uploads\scan.pdf`))
	assert.Equal(t, "a b.pdf", u.SanitizeFileName(`../a b".pdf`))
	assert.Equal(t, "document.pdf", u.SanitizeFileName(""))
}
