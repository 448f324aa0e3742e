package redactionService

import (
	"mime/multipart"
	"time"

	"SigSecure/internal/api/redaction"
	redactionRepository "SigSecure/internal/api/redaction/repository"
	"SigSecure/internal/entity"
	"SigSecure/internal/pipeline"
	"SigSecure/pkg/audit"
	"SigSecure/pkg/redis"
	"SigSecure/pkg/s3"
	"SigSecure/pkg/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IRedactionService interface {
	Redact(ctx context.Context, req redaction.RedactRequest, file *multipart.FileHeader) (redaction.RedactResult, error)
	Download(ctx context.Context, documentID string) (string, error)
	DownloadURL(ctx context.Context, documentID string) (redaction.DownloadURLResponse, error)
	Delete(ctx context.Context, documentID string) error
	Release(ctx context.Context, documentID string) error
	AuditLogs(ctx context.Context) ([]map[string]interface{}, error)
	AuditRecord(ctx context.Context, documentID string) (entity.AuditRecord, error)
}

// Redactor runs the redaction pipeline on one stored document.
type Redactor interface {
	Run(ctx context.Context, req pipeline.Request) (entity.PipelineResult, error)
}

type Config struct {
	StorageDir string
	TicketTTL  time.Duration
	URLExpiry  time.Duration
}

type redactionService struct {
	log      *logrus.Logger
	cfg      Config
	redactor Redactor
	auditLog audit.ILog
	tickets  redis.IRedis
	archive  s3.ItfS3
	repo     redactionRepository.Repository
	utils    utils.IUtils
}

// NewRedactionService wires the upload flow. tickets, archive and repo are
// optional and may be nil.
func NewRedactionService(
	log *logrus.Logger,
	cfg Config,
	redactor Redactor,
	auditLog audit.ILog,
	tickets redis.IRedis,
	archive s3.ItfS3,
	repo redactionRepository.Repository,
	utils utils.IUtils,
) IRedactionService {
	if cfg.StorageDir == "" {
		cfg.StorageDir = "./storage/documents"
	}
	if cfg.TicketTTL <= 0 {
		cfg.TicketTTL = time.Hour
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = 15 * time.Minute
	}

	return &redactionService{
		log:      log,
		cfg:      cfg,
		redactor: redactor,
		auditLog: auditLog,
		tickets:  tickets,
		archive:  archive,
		repo:     repo,
		utils:    utils,
	}
}
