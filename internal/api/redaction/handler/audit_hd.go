package redactionHandler

import (
	"time"

	contextPkg "SigSecure/pkg/context"
	"SigSecure/pkg/handlerUtil"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

// GetAuditLogs returns every NDJSON audit record as a JSON array.
func (h *RedactionHandler) GetAuditLogs(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	records, err := h.redactionService.AuditLogs(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_audit_log")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, records)
}

func (h *RedactionHandler) GetAuditRecord(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	rec, err := h.redactionService.AuditRecord(c, ctx.Params("id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_audit_record")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, rec)
}
