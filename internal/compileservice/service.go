// Package compileservice wires a pipeline.Runner to durable storage and an
// HTTP surface: it is the process-level assembly the cmd/ binaries start.
package compileservice

import (
	"context"
	"fmt"

	"github.com/tensorfuse/fusegen/internal/artifacts"
	"github.com/tensorfuse/fusegen/internal/pipeline"
	"github.com/tensorfuse/fusegen/internal/report"
	"github.com/tensorfuse/fusegen/pkg/compression"
	"github.com/tensorfuse/fusegen/pkg/config"
	"github.com/tensorfuse/fusegen/pkg/utils"
)

// Service is the main application service: a pipeline.Runner plus the
// database, object storage, and HTTP listener around it.
type Service struct {
	config *config.Config
	logger utils.Logger

	db      *report.Repositories
	storage artifacts.Store
	comp    compression.Compressor
	runner  *pipeline.Runner
	server  *Server

	running bool
}

// New creates a new Service instance.
func New(cfg *config.Config, logger utils.Logger) (*Service, error) {
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	return &Service{
		config: cfg,
		logger: logger,
	}, nil
}

// Initialize initializes all service components.
func (s *Service) Initialize(ctx context.Context) error {
	s.logger.Info("Initializing service components...")

	if err := s.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := s.initStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := s.config.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	comp, err := compression.New(compression.TypeZstd, compression.LevelDefault)
	if err != nil {
		return fmt.Errorf("failed to initialize compressor: %w", err)
	}
	s.comp = comp

	s.runner = pipeline.New(s.config.Pass.Version)
	s.server = NewServer(s.config.HTTP.Addr, s.runner, s.db, s.storage, s.comp, s.logger)

	s.logger.Info("Service components initialized successfully")
	return nil
}

func (s *Service) initDatabase() error {
	s.logger.Info("Connecting to database (%s)...", s.config.Database.Type)

	dbConfig := &report.DBConfig{
		Type:     s.config.Database.Type,
		Host:     s.config.Database.Host,
		Port:     s.config.Database.Port,
		Database: s.config.Database.Database,
		User:     s.config.Database.User,
		Password: s.config.Database.Password,
		MaxConns: s.config.Database.MaxConns,
	}

	gormDB, err := report.NewGormDB(dbConfig)
	if err != nil {
		return err
	}

	s.db = report.NewRepositories(gormDB, s.config.Database.Type, s.config.Pass.Version)
	s.logger.Info("Database connection established")
	return nil
}

func (s *Service) initStorage() error {
	s.logger.Info("Initializing storage (%s)...", s.config.Storage.Type)

	store, err := artifacts.NewStore(&s.config.Storage)
	if err != nil {
		return err
	}

	s.storage = store
	s.logger.Info("Storage initialized")
	return nil
}

// Start starts the HTTP server. It blocks until the server stops or ctx is
// done.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting service...")
	s.running = true
	return s.server.Start(ctx)
}

// Stop stops the service gracefully.
func (s *Service) Stop(ctx context.Context) error {
	s.logger.Info("Stopping service...")

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to shut down HTTP server: %v", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection: %v", err)
		}
	}

	s.running = false
	s.logger.Info("Service stopped")
	return nil
}

// IsRunning returns whether the service is running.
func (s *Service) IsRunning() bool {
	return s.running
}

// HealthCheck performs a health check on the service.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database health check failed: %w", err)
		}
	}
	return nil
}
