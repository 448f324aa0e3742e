package redactionRepository

const (
	queryCreateAuditRecord = `
		INSERT INTO redaction_audit_records (
			id,
			file,
			privacy_mode,
			redaction_style,
			signatures_detected,
			entities_redacted,
			highlight_only,
			error,
			created_at
		) VALUES (
			:id,
			:file,
			:privacy_mode,
			:redaction_style,
			:signatures_detected,
			:entities_redacted,
			:highlight_only,
			:error,
			:created_at
		)
	`

	queryGetAuditRecordByID = `
		SELECT
			id,
			file,
			privacy_mode,
			redaction_style,
			signatures_detected,
			entities_redacted,
			highlight_only,
			error,
			created_at
		FROM redaction_audit_records
		WHERE id = :id
	`
)
