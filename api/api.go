package api

import (
	"context"
	"errors"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/strata/pkg/registry"
	"github.com/papercomputeco/strata/pkg/service"
	"github.com/papercomputeco/strata/pkg/syncqueue"
)

// Syncer exposes sync queue state and manual drains.
type Syncer interface {
	Status(ctx context.Context) (registry.Status, error)
	Drain(ctx context.Context) (syncqueue.DrainResult, error)
}

// Server is the API server for the memory service.
type Server struct {
	config Config
	svc    *service.Service
	syncer Syncer
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server over svc. The syncer is usually the
// process registry.
func NewServer(config Config, svc *service.Service, syncer Syncer, logger *zap.Logger) (*Server, error) {
	if svc == nil {
		return nil, errors.New("memory service is required")
	}
	if syncer == nil {
		return nil, errors.New("syncer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          fallbackErrorHandler,
	})

	s := &Server{
		config: config,
		svc:    svc,
		syncer: syncer,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/health", s.handleHealth)

	v1 := app.Group("/v1")
	v1.Post("/intent", s.handleDetectIntent)
	v1.Get("/sync", s.handleSyncStatus)
	v1.Post("/sync/drain", s.handleSyncDrain)

	v1.Post("/conversations/:id", s.handleInitialize)

	conv := v1.Group("/conversations/:id")
	conv.Post("/messages", s.handleAppendMessage)
	conv.Get("/context", s.handleBuildContext)
	conv.Post("/compress", s.handleCompress)
	conv.Put("/phase", s.handleUpdatePhase)
	conv.Get("/phase/recommendation", s.handleRecommendPhase)
	conv.Post("/remember", s.handleRemember)
	conv.Post("/forget", s.handleForget)
	conv.Post("/query", s.handleResolveQuery)

	if config.MCPHandler != nil {
		mcp := adaptor.HTTPHandler(config.MCPHandler)
		app.All("/mcp", mcp)
		app.All("/mcp/*", mcp)
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
		zap.Bool("mcp", s.config.MCPHandler != nil),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
