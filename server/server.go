// Package server is a development backend speaking the Joyful JSON API.
// It stands in for the production service so the client can be run and
// tested end to end; generated images are placeholders.
package server

import (
	"database/sql"
	"net/http"
	"sync"

	"github.com/existflow/joyful/internal/api"
	"github.com/existflow/joyful/internal/logger"
	"github.com/existflow/joyful/internal/model"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"golang.org/x/time/rate"
	_ "modernc.org/sqlite"
)

// Server is the development backend
type Server struct {
	db      *sql.DB
	dialect dialect
	cfg     Config
	echo    *echo.Echo

	sendMu   sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a new server
func New(cfg Config) (*Server, error) {
	def := DefaultConfig()
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	if len(cfg.JWTSecret) == 0 {
		cfg.JWTSecret = def.JWTSecret
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = def.TokenTTL
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = def.CodeTTL
	}
	if cfg.SendInterval <= 0 {
		cfg.SendInterval = def.SendInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}

	db, d, err := openDB(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	s := &Server{
		db:       db,
		dialect:  d,
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
	}

	// Run migrations
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.ensureAdmin(); err != nil {
		db.Close()
		return nil, err
	}

	// Setup Echo
	s.setupEcho()

	logger.Info("Dev server ready", logger.F("driver", d.driver), logger.F("generation", cfg.GenerationEnabled))
	return s, nil
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(requestLogger)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: newRequestID}))
	e.Use(middleware.CORS())

	a := e.Group("/api")

	// Public endpoints
	a.GET("/health", s.handleHealth)
	a.GET("/ratios", s.handleRatios)
	a.POST("/register", s.handleRegister)
	a.POST("/login", s.handleLogin)
	a.POST("/send-verification-code", s.handleSendCode)
	a.POST("/verify-email-code", s.handleVerifyCode)

	// Protected endpoints
	protected := a.Group("")
	protected.Use(s.authMiddleware)
	protected.GET("/user/info", s.handleUserInfo)
	protected.GET("/user/check-trial", s.handleCheckTrial)
	protected.POST("/user/use-trial", s.handleUseTrial)
	protected.POST("/generate", s.handleGenerate)

	s.echo = e
}

// Close closes the database connection
func (s *Server) Close() error {
	return s.db.Close()
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start starts the server
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, api.HealthResponse{
		Status:           "healthy",
		APIKeyConfigured: s.cfg.GenerationEnabled,
	})
}

func (s *Server) handleRatios(c echo.Context) error {
	return c.JSON(http.StatusOK, api.RatiosResponse{
		Envelope: api.Envelope{Success: true},
		Ratios:   model.SupportedRatios,
	})
}

// fail writes the standard failure envelope
func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, api.Envelope{Success: false, Message: message})
}

func (s *Server) q(query string) string {
	return s.dialect.rebind(query)
}
