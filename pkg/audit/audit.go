package audit

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"SigSecure/internal/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ILog is the append-only audit trail. Each record is one JSON line.
type ILog interface {
	Write(rec entity.AuditRecord) error
	Record(rec entity.DiagnosticRecord)
	ReadAll() ([]map[string]interface{}, error)
	Close() error
}

type auditLog struct {
	path string
	mu   sync.Mutex
	out  *lumberjack.Logger
	log  *logrus.Logger
}

// New opens (or creates) the audit log at path. Rotation keeps records
// intact because every line is written with a single Write call.
func New(path string, log *logrus.Logger) (ILog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	return &auditLog{
		path: path,
		out: &lumberjack.Logger{
			Filename:   path,
			LocalTime:  true,
			MaxSize:    50,
			MaxBackups: 10,
			MaxAge:     90,
		},
		log: log,
	}, nil
}

func (a *auditLog) append(v interface{}) error {
	line, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	_, err = a.out.Write(line)
	return err
}

func (a *auditLog) Write(rec entity.AuditRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.EntitiesRedacted == nil {
		rec.EntitiesRedacted = map[string]int{}
	}
	return a.append(rec)
}

// Record appends a diagnostic line. Failures are logged, never returned, so
// tracing cannot fail a redaction.
func (a *auditLog) Record(rec entity.DiagnosticRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if err := a.append(rec); err != nil {
		a.log.WithFields(logrus.Fields{
			"event": rec.Event,
			"error": err.Error(),
		}).Warn("Failed to append diagnostic record")
	}
}

// ReadAll returns every record of the current log file in write order. A log
// that does not exist yet reads as empty.
func (a *auditLog) ReadAll() ([]map[string]interface{}, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	records := []map[string]interface{}{}

	f, err := os.Open(a.path)
	if errors.Is(err, os.ErrNotExist) {
		return records, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec map[string]interface{}
		if err := jsoniter.Unmarshal(line, &rec); err != nil {
			a.log.WithField("error", err.Error()).Warn("Skipping malformed audit line")
			continue
		}
		records = append(records, rec)
	}

	return records, scanner.Err()
}

func (a *auditLog) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.out.Close()
}
