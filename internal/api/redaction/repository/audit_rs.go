package redactionRepository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"SigSecure/internal/api/redaction"
	"SigSecure/internal/entity"
	contextPkg "SigSecure/pkg/context"

	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

type AuditRecordDB struct {
	ID                 sql.NullString `db:"id"`
	File               sql.NullString `db:"file"`
	PrivacyMode        sql.NullString `db:"privacy_mode"`
	RedactionStyle     sql.NullString `db:"redaction_style"`
	SignaturesDetected sql.NullInt64  `db:"signatures_detected"`
	EntitiesRedacted   sql.NullString `db:"entities_redacted"`
	HighlightOnly      sql.NullBool   `db:"highlight_only"`
	Error              sql.NullString `db:"error"`
	CreatedAt          time.Time      `db:"created_at"`
}

func (r *auditRepository) CreateAuditRecord(c context.Context, rec entity.AuditRecord) error {
	requestID := contextPkg.GetRequestID(c)

	entities, err := jsoniter.MarshalToString(rec.EntitiesRedacted)
	if err != nil {
		return err
	}

	var errText sql.NullString
	if rec.Error != nil {
		errText = sql.NullString{String: *rec.Error, Valid: true}
	}

	argsKV := map[string]interface{}{
		"id":                  rec.ID,
		"file":                rec.File,
		"privacy_mode":        rec.PrivacyMode,
		"redaction_style":     rec.RedactionStyle,
		"signatures_detected": rec.SignaturesDetected,
		"entities_redacted":   entities,
		"highlight_only":      rec.HighlightOnly,
		"error":               errText,
		"created_at":          rec.Timestamp,
	}

	query, args, err := sqlx.Named(queryCreateAuditRecord, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateAuditRecord")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(c, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating audit record")
		return err
	}

	return nil
}

func (r *auditRepository) GetAuditRecordByID(c context.Context, id string) (entity.AuditRecord, error) {
	requestID := contextPkg.GetRequestID(c)

	query, args, err := sqlx.Named(queryGetAuditRecordByID, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetAuditRecordByID named query preparation err")
		return entity.AuditRecord{}, err
	}
	query = r.q.Rebind(query)

	var row AuditRecordDB
	if err := r.q.GetContext(c, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.AuditRecord{}, redaction.ErrDocumentNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when fetching audit record")
		return entity.AuditRecord{}, err
	}

	return row.toEntity(), nil
}

func (d AuditRecordDB) toEntity() entity.AuditRecord {
	rec := entity.AuditRecord{
		ID:                 d.ID.String,
		Timestamp:          d.CreatedAt,
		File:               d.File.String,
		PrivacyMode:        d.PrivacyMode.String,
		RedactionStyle:     d.RedactionStyle.String,
		SignaturesDetected: int(d.SignaturesDetected.Int64),
		EntitiesRedacted:   map[string]int{},
		HighlightOnly:      d.HighlightOnly.Bool,
	}
	if d.EntitiesRedacted.Valid && d.EntitiesRedacted.String != "" {
		_ = jsoniter.UnmarshalFromString(d.EntitiesRedacted.String, &rec.EntitiesRedacted)
	}
	if d.Error.Valid {
		msg := d.Error.String
		rec.Error = &msg
	}
	return rec
}
