// Package container wires application dependencies together. Components are
// initialized in dependency order and torn down in reverse.
package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/usyd-catams/catams/internal/application/port"
	"github.com/usyd-catams/catams/internal/application/service"
	"github.com/usyd-catams/catams/internal/config"
	"github.com/usyd-catams/catams/internal/domain/policy"
	"github.com/usyd-catams/catams/internal/domain/rules"
	"github.com/usyd-catams/catams/internal/domain/workflow"
	"github.com/usyd-catams/catams/internal/infrastructure/auth"
	"github.com/usyd-catams/catams/internal/infrastructure/persistence/repository"
	"github.com/usyd-catams/catams/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/usyd-catams/catams/internal/interfaces/http"
	"github.com/usyd-catams/catams/pkg/database"
)

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Timesheet port.TimesheetRepository
	Approval  port.ApprovalRepository
	User      port.UserRepository
	Course    port.CourseRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Auth      service.AuthService
	Timesheet service.TimesheetService
	Approval  service.ApprovalService
	Export    service.ExportService
}

// Container manages all application dependencies and lifecycle.
type Container struct {
	config *config.Config
	logger *zap.Logger

	db           *database.DB
	txManager    *sqlite.DB
	repositories *RepositoryBundle

	clock    rules.Clock
	tokens   *auth.Manager
	services *ServiceBundle
	server   *httpserver.Server

	started atomic.Bool
}

// NewContainer creates a new container from configuration. It does not
// initialize components; call Start to initialize and serve.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components in dependency order and runs the HTTP
// server until the context is cancelled:
//  1. Database, migrations and repositories
//  2. Domain services (state machine, permissions, validation)
//  3. Application services
//  4. HTTP server
func (c *Container) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("container already started")
	}

	if err := c.initDatabase(); err != nil {
		return err
	}
	c.initServices()

	c.server = httpserver.NewServer(
		httpserver.ServerConfig{
			Host:         c.config.Server.Host,
			Port:         c.config.Server.Port,
			ReadTimeout:  c.config.Server.ReadTimeout,
			WriteTimeout: c.config.Server.WriteTimeout,
		},
		c.services.Auth,
		c.services.Timesheet,
		c.services.Approval,
		c.services.Export,
		c.tokens,
		c.clock,
		&zapLoggerAdapter{logger: c.logger},
	)

	return c.server.Start(ctx)
}

// Close releases all resources in reverse initialization order
func (c *Container) Close() error {
	if c.server != nil {
		if err := c.server.Stop(); err != nil {
			c.logger.Error("Failed to stop HTTP server", zap.Error(err))
		}
	}
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Services exposes the application services (for tests and tooling)
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Repositories exposes the repositories (for tests and tooling)
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

func (c *Container) initDatabase() error {
	if dir := filepath.Dir(c.config.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := database.New(database.Config{
		Path:            c.config.Database.Path,
		MaxOpenConns:    c.config.Database.MaxOpenConns,
		MaxIdleConns:    c.config.Database.MaxIdleConns,
		ConnMaxLifetime: c.config.Database.ConnMaxLifetime,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.db = db

	migrator := database.NewMigrator(db, c.logger)
	if err := migrator.RunMigrations(c.config.Database.MigrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	c.txManager = sqlite.NewDB(db.DB, c.logger)
	c.repositories = &RepositoryBundle{
		Timesheet: repository.NewTimesheetRepository(db.DB, c.logger),
		Approval:  repository.NewApprovalRepository(db.DB, c.logger),
		User:      repository.NewUserRepository(db.DB, c.logger),
		Course:    repository.NewCourseRepository(db.DB, c.logger),
	}
	return nil
}

func (c *Container) initServices() {
	machine := workflow.NewMachine()
	evaluator := policy.NewEvaluator(machine, c.repositories.Course)
	clock := rules.SystemClock{}
	c.clock = clock
	validator := rules.NewValidator(c.repositories.Timesheet, clock, rules.HoursBounds{
		Min: c.config.Timesheet.MinHours,
		Max: c.config.Timesheet.MaxHours,
	})

	c.tokens = auth.NewManager(c.config.Auth.JWTSecret, c.config.Auth.TokenTTL)

	serviceLogger := &zapLoggerAdapter{logger: c.logger}
	c.services = &ServiceBundle{
		Auth: service.NewAuthService(c.repositories.User, c.tokens, serviceLogger),
		Timesheet: service.NewTimesheetService(
			c.repositories.Timesheet,
			c.repositories.User,
			c.repositories.Course,
			evaluator,
			validator,
			clock,
			serviceLogger,
		),
		Approval: service.NewApprovalService(
			c.repositories.Timesheet,
			c.repositories.Approval,
			c.repositories.User,
			c.txManager,
			machine,
			evaluator,
			validator,
			clock,
			serviceLogger,
		),
		Export: service.NewExportService(
			c.repositories.Timesheet,
			c.repositories.User,
			c.repositories.Course,
			serviceLogger,
		),
	}
}

// zapLoggerAdapter adapts zap.Logger to the service.Logger interface.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
