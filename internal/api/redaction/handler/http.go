package redactionHandler

import (
	redactionService "SigSecure/internal/api/redaction/service"
	"SigSecure/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type RedactionHandler struct {
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	redactionService redactionService.IRedactionService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	redactionService redactionService.IRedactionService,
) *RedactionHandler {
	return &RedactionHandler{
		log:              log,
		validator:        validate,
		middleware:       middleware,
		redactionService: redactionService,
	}
}

func (h *RedactionHandler) Start(srv fiber.Router) {
	srv.Get("/health", h.Health)

	redactions := srv.Group("/redactions")
	redactions.Post("", h.middleware.NewRateLimiter, h.Redact)
	redactions.Get("/:id/download", h.Download)
	redactions.Get("/:id/url", h.DownloadURL)
	redactions.Delete("/:id", h.Delete)

	audit := srv.Group("/audit-logs")
	audit.Get("", h.GetAuditLogs)
	audit.Get("/:id", h.GetAuditRecord)
}
