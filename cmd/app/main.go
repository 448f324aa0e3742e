package main

import (
	"os"
	"os/signal"
	"syscall"

	"SigSecure/internal/config"
	"SigSecure/internal/pipeline"
	"SigSecure/pkg/audit"
	"SigSecure/pkg/log"
	"SigSecure/pkg/pdf"

	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()
	logger := log.NewLogger()
	if envErr != nil && !os.IsNotExist(envErr) {
		logger.Fatalf("Error loading .env file: %v", envErr)
	}

	pipelineConfig, err := config.LoadPipelineConfig(os.Getenv("PIPELINE_CONFIG"))
	if err != nil {
		logger.Fatal(err)
	}

	collaborators, err := config.NewCollaborators(logger)
	if err != nil {
		logger.Fatal(err)
	}
	defer collaborators.Close()

	auditPath := os.Getenv("AUDIT_LOG_PATH")
	if auditPath == "" {
		auditPath = "./storage/audit_log.json"
	}
	auditLog, err := audit.New(auditPath, logger)
	if err != nil {
		logger.Fatalf("Failed to open audit log: %v", err)
	}

	storageDir := os.Getenv("STORAGE_DIR")
	if storageDir == "" {
		storageDir = "./storage/documents"
	}

	redactor := pipeline.New(
		pipelineConfig,
		pdf.NewOpener(logger),
		collaborators.OCR,
		collaborators.NER,
		collaborators.Embedder,
		logger,
		pipeline.WithDiagnostics(auditLog),
	)

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithDatabase(),
		config.WithRedisServer(),
		config.WithMiddleware(),
		config.WithS3Client(),
		config.WithAuditLog(auditLog),
		config.WithPipeline(redactor),
		config.WithStorageDir(storageDir),
		config.WithUtils(),
	)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")
	if err := server.Shutdown(); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
