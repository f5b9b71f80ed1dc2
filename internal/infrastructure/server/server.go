package server

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sammcj/goose/internal/api/frontend"
	apihttp "github.com/sammcj/goose/internal/api/http"
	"github.com/sammcj/goose/internal/api/middleware"
	"github.com/sammcj/goose/internal/api/proxy"
	"github.com/sammcj/goose/internal/api/ws"
	"github.com/sammcj/goose/internal/domain/apps"
	"github.com/sammcj/goose/internal/domain/bridge"
	"github.com/sammcj/goose/internal/domain/session"
	"github.com/sammcj/goose/internal/infrastructure/config"
	"github.com/sammcj/goose/internal/infrastructure/logging"
	"github.com/sammcj/goose/internal/infrastructure/monitoring"
	"github.com/sammcj/goose/internal/infrastructure/tracing"
	"github.com/sammcj/goose/internal/providers"
	"github.com/sammcj/goose/internal/providers/agent"
	"github.com/sammcj/goose/internal/providers/bundled"
	"github.com/sammcj/goose/internal/providers/mcpext"
	"github.com/sammcj/goose/internal/providers/theme"
	"github.com/sammcj/goose/internal/shared/types"
)

// Server wires the host together: providers, domain managers, and the HTTP
// surface (control API, sandbox proxy, guest channel, frontend events).
type Server struct {
	router     *gin.Engine
	manager    *apps.Manager
	sessions   *session.Manager
	extensions *mcpext.Registry
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// NewServer builds a server from configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("initializing app host",
		zap.String("port", cfg.Server.Port),
		zap.String("agent_addr", cfg.Agent.Address),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("apphost", logger.Logger)

	// Providers.
	agentClient := agent.NewClient(cfg.Agent, logger).WithMetrics(metrics)

	var bundledProvider *bundled.Provider
	if cfg.Host.BundledDir != "" {
		p, err := bundled.NewProvider(cfg.Host.BundledDir, logger)
		if err != nil {
			logger.Warn("bundled extensions unavailable",
				zap.String("dir", cfg.Host.BundledDir), zap.Error(err))
		} else {
			bundledProvider = p
		}
	}
	extensions := mcpext.NewRegistry(logger)
	extensions.Spawn(context.Background(), mcpext.ParseSpecs(cfg.Host.MCPExtensions))

	fetcher := providers.NewChainFetcher(bundledProvider, extensions, agentClient)
	tools := providers.NewToolRouter(extensions, agentClient)
	themes := theme.NewProvider()

	// Proxy identity. A generated secret still yields working sandboxes;
	// it just rotates on restart.
	proxySecret := cfg.Proxy.Secret
	if proxySecret == "" {
		proxySecret = uuid.NewString()
		logger.Info("generated ephemeral proxy secret")
	}
	proxyBase := cfg.Proxy.PublicBase
	if proxyBase == "" {
		proxyBase = "http://127.0.0.1:" + cfg.Server.Port
	}

	// Domain managers.
	loader := apps.NewLoader(fetcher, apps.LoaderConfig{
		Retries: cfg.Host.FetchRetries,
		Backoff: time.Duration(cfg.Host.FetchBackoffMS) * time.Millisecond,
	}, logger).WithMetrics(metrics)

	resolver := apps.NewResolver(proxyBase, proxySecret)
	manager := apps.NewManager(loader, resolver, hostModes(cfg.Host.DisplayModes), logger).WithMetrics(metrics)
	sessions := session.NewManager().WithMetrics(metrics)

	hub := frontend.NewHub(logger)

	var guestRPS float64
	if cfg.RateLimit.Enabled {
		guestRPS = float64(cfg.RateLimit.RequestsPerSecond)
	}
	bridges := bridge.NewRegistry(bridge.Shared{
		Tools:               tools,
		Resources:           agentClient,
		Sampling:            agentClient,
		Opener:              hub,
		Confirmer:           hub,
		Transcript:          hub,
		Scroll:              hub,
		TrustedLinkPatterns: types.ParseDomainList(cfg.Host.TrustedLinks),
		RPCTimeout:          time.Duration(cfg.Host.RPCTimeoutSecs) * time.Second,
		RequestsPerSecond:   guestRPS,
		Logger:              logger,
		Metrics:             metrics,
	})

	contexts := apps.NewContextBuilder(themes, cfg.Host.UserAgent)

	// Router.
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	// Routes.
	apihttp.NewHandlers(manager, sessions, bridges, themes, logger).Register(router)
	apihttp.NewMetricsHandlers(metrics).Register(router)
	hub.Register(router)

	store := proxy.NewStore(
		time.Duration(cfg.Proxy.GuestTTLSeconds)*time.Second,
		cfg.Proxy.MaxGuestEntries,
	)
	proxy.NewRoutes(proxySecret, store, logger).WithMetrics(metrics).Register(router)

	wsHandler := ws.NewHandler(manager, sessions, bridges, contexts, logger).WithMetrics(metrics)
	router.GET("/api/apps/:id/channel", wsHandler.HandleConnection)

	// Theme switches reach every live guest as a host context update.
	themes.OnSet(func(theme.Theme) {
		for _, inst := range manager.List() {
			wsHandler.PushHostContext(inst)
		}
	})

	logger.Info("app host initialized")

	return &Server{
		router:     router,
		manager:    manager,
		sessions:   sessions,
		extensions: extensions,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
	}, nil
}

// Run starts the HTTP server and blocks.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Router exposes the gin engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Close shuts the server down: every instance is unmounted and sessions are
// dropped.
func (s *Server) Close() error {
	s.logger.Info("shutting down app host")

	for _, sess := range s.sessions.List() {
		s.manager.CloseSession(sess.ID)
		s.sessions.Close(sess.ID)
	}
	if err := s.extensions.Close(); err != nil {
		s.logger.Warn("extension shutdown failed", zap.Error(err))
	}

	_ = s.logger.Sync()
	return nil
}

// hostModes parses the configured display mode list, dropping unknown names.
func hostModes(raw string) []types.DisplayMode {
	var modes []types.DisplayMode
	for _, part := range strings.Split(raw, ",") {
		if mode, ok := types.ParseDisplayMode(strings.TrimSpace(part)); ok {
			modes = append(modes, mode)
		}
	}
	if len(modes) == 0 {
		modes = []types.DisplayMode{types.ModeInline}
	}
	return modes
}
