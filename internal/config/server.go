package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"SigSecure/database/postgres"
	redactionHandler "SigSecure/internal/api/redaction/handler"
	redactionRepository "SigSecure/internal/api/redaction/repository"
	redactionService "SigSecure/internal/api/redaction/service"
	"SigSecure/internal/middleware"
	"SigSecure/pkg/audit"
	"SigSecure/pkg/redis"
	"SigSecure/pkg/s3"
	"SigSecure/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	db          *sqlx.DB
	log         *logrus.Logger
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	handlers    []handler
	redisServer redis.IRedis
	s3Client    s3.ItfS3
	auditLog    audit.ILog
	redactor    redactionService.Redactor
	storageDir  string
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.redactor == nil {
		return nil, fmt.Errorf("redaction pipeline is required")
	}
	if server.auditLog == nil {
		return nil, fmt.Errorf("audit log is required")
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log, 0, 0)
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.utils == nil {
		server.utils = utils.New(0)
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

// WithDatabase mirrors audit records into Postgres. It is skipped when
// DB_HOST is not set.
func WithDatabase() ServerOption {
	return func(s *Server) error {
		if os.Getenv("DB_HOST") == "" {
			return nil
		}
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

// WithRedisServer enables download tickets. It is skipped when
// REDIS_ADDRESS is not set.
func WithRedisServer() ServerOption {
	return func(s *Server) error {
		if os.Getenv("REDIS_ADDRESS") == "" {
			return nil
		}
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before redis")
		}
		s.redisServer = redis.New(s.log)
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		reqRate, _ := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
		burst, _ := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
		s.middleware = middleware.New(s.log, reqRate, burst)
		return nil
	}
}

// WithS3Client archives redacted documents. It is skipped when
// AWS_BUCKET_NAME is not set.
func WithS3Client() ServerOption {
	return func(s *Server) error {
		if os.Getenv("AWS_BUCKET_NAME") == "" {
			return nil
		}
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithAuditLog(auditLog audit.ILog) ServerOption {
	return func(s *Server) error {
		s.auditLog = auditLog
		return nil
	}
}

func WithPipeline(redactor redactionService.Redactor) ServerOption {
	return func(s *Server) error {
		s.redactor = redactor
		return nil
	}
}

func WithStorageDir(dir string) ServerOption {
	return func(s *Server) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create storage dir: %w", err)
		}
		s.storageDir = dir
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		maxSize, _ := strconv.ParseInt(os.Getenv("MAX_UPLOAD_BYTES"), 10, 64)
		s.utils = utils.New(maxSize)
		return nil
	}
}

func (s *Server) RegisterHandler() {
	var repo redactionRepository.Repository
	if s.db != nil {
		repo = redactionRepository.New(s.db, s.log)
	}

	ticketTTL, _ := time.ParseDuration(os.Getenv("DOWNLOAD_TICKET_TTL"))

	// Redaction Domain
	redactionServices := redactionService.NewRedactionService(
		s.log,
		redactionService.Config{StorageDir: s.storageDir, TicketTTL: ticketTTL},
		s.redactor,
		s.auditLog,
		s.redisServer,
		s.s3Client,
		repo,
		s.utils,
	)
	redactionHandlers := redactionHandler.New(s.log, s.validator, s.middleware, redactionServices)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, redactionHandlers)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())
	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown stops the listener and releases every backing client.
func (s *Server) Shutdown() error {
	err := s.engine.Shutdown()

	if s.redisServer != nil {
		_ = s.redisServer.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.auditLog != nil {
		_ = s.auditLog.Close()
	}

	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
