package audit

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"SigSecure/internal/entity"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLog(t *testing.T) (ILog, string) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	path := filepath.Join(t.TempDir(), "audit", "audit.ndjson")
	a, err := New(path, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, path
}

func TestReadAllMissingFile(t *testing.T) {
	a, _ := newLog(t)

	recs, err := a.ReadAll()
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestWriteAndRead(t *testing.T) {
	a, path := newLog(t)
	msg := "boom"

	require.NoError(t, a.Write(entity.AuditRecord{
		File:               "lease.pdf",
		PrivacyMode:        "signer",
		RedactionStyle:     "black",
		SignaturesDetected: 2,
		EntitiesRedacted:   map[string]int{"PERSON": 1},
	}))
	a.Record(entity.DiagnosticRecord{Event: "ocr_retry", File: "lease.pdf", Page: 1, Detail: map[string]float64{"mean_confidence": 0.7}})
	require.NoError(t, a.Write(entity.AuditRecord{File: "bad.pdf", Error: &msg}))

	recs, err := a.ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "lease.pdf", recs[0]["file"])
	assert.Equal(t, float64(2), recs[0]["signatures_detected"])
	assert.Equal(t, map[string]interface{}{"PERSON": float64(1)}, recs[0]["entities_redacted"])
	assert.Nil(t, recs[0]["error"])
	assert.NotEmpty(t, recs[0]["timestamp"])

	assert.Equal(t, "ocr_retry", recs[1]["event"])
	assert.Equal(t, "boom", recs[2]["error"])
	assert.Equal(t, map[string]interface{}{}, recs[2]["entities_redacted"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "\n"))
}

func TestConcurrentWritesDoNotInterleave(t *testing.T) {
	a, _ := newLog(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.Write(entity.AuditRecord{File: strings.Repeat("x", 4096)})
		}()
	}
	wg.Wait()

	recs, err := a.ReadAll()
	require.NoError(t, err)
	assert.Len(t, recs, 20)
}
