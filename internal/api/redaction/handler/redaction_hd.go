package redactionHandler

import (
	"errors"
	"os"
	"strconv"
	"time"

	"SigSecure/internal/api/redaction"
	contextPkg "SigSecure/pkg/context"
	"SigSecure/pkg/handlerUtil"
	"SigSecure/pkg/log"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
)

const redactTimeout = 5 * time.Minute

func (h *RedactionHandler) Redact(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), redactTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing redaction request")

	var req redaction.RedactRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		return errHandler.Handle(ctx, requestID, redaction.ErrNoFile, ctx.Path(), "read_upload")
	}

	result, err := h.redactionService.Redact(c, req, file)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "redact_document")
	}

	entities, err := jsoniter.MarshalToString(result.EntitiesRedacted)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "encode_summary")
	}

	select {
	case <-c.Done():
		if !result.Retained {
			h.release(c, requestID, result.DocumentID)
		}
		return errHandler.HandleRequestTimeout(ctx)
	default:
		ctx.Set("X-Document-ID", result.DocumentID)
		ctx.Set("X-Signatures-Detected", strconv.Itoa(result.SignaturesDetected))
		ctx.Set("X-Entities-Redacted", entities)
	}

	if result.Retained {
		return ctx.Download(result.OutputPath, result.FileName)
	}

	data, err := os.ReadFile(result.OutputPath)
	h.release(c, requestID, result.DocumentID)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_output")
	}

	ctx.Attachment(result.FileName)
	return ctx.Send(data)
}

// release drops an output nobody can download later.
func (h *RedactionHandler) release(c context.Context, requestID, documentID string) {
	if err := h.redactionService.Release(c, documentID); err != nil {
		h.log.WithFields(log.Fields{
			"request_id":  requestID,
			"document_id": documentID,
			"error":       err.Error(),
		}).Warn("Failed to release redacted document")
	}
}

func (h *RedactionHandler) Download(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	id := ctx.Params("id")
	if id == "" {
		return errHandler.HandleValidationError(ctx, requestID,
			errors.New("document ID is required"), ctx.Path())
	}

	path, err := h.redactionService.Download(c, id)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "download_document")
	}

	ctx.Set("X-Document-ID", id)
	return ctx.Download(path)
}

func (h *RedactionHandler) DownloadURL(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	resp, err := h.redactionService.DownloadURL(c, ctx.Params("id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "presign_document")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, resp)
}

func (h *RedactionHandler) Delete(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	if err := h.redactionService.Delete(c, ctx.Params("id")); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "delete_document")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusNoContent, nil)
}

func (h *RedactionHandler) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(redaction.HealthResponse{Status: "Backend is running"})
}
