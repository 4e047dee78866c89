package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"aurioncal/internal/config"
	"aurioncal/internal/models"
	"aurioncal/internal/security"
)

// Store is the persistence surface the handlers need.
type Store interface {
	CreateUser(ctx context.Context, u models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, encrypted string) error
	ResetCalendarToken(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListEvents(ctx context.Context, userID uuid.UUID) ([]models.CalendarEvent, error)
}

// Planning validates credentials against the upstream planning source.
type Planning interface {
	CheckLogin(ctx context.Context, email, password string) (bool, error)
}

// FeedCache caches rendered ICS documents. A nil FeedCache disables caching.
type FeedCache interface {
	GetFeed(ctx context.Context, userID string) (string, error)
	SetFeed(ctx context.Context, userID, doc string, ttl time.Duration) error
	InvalidateFeed(ctx context.Context, userID string) error
	Ping(ctx context.Context) error
}

// Refresher triggers a background planning refresh for one user.
type Refresher interface {
	Refresh(ctx context.Context, userID uuid.UUID)
}

// Deps bundles everything the HTTP layer talks to.
type Deps struct {
	Store     Store
	Cache     FeedCache
	Planning  Planning
	Refresher Refresher
	// PingDB reports database liveness for the health endpoint; nil means
	// "not wired" and health reports the database as skipped.
	PingDB func(ctx context.Context) error
}

type Server struct {
	log        *slog.Logger
	cfg        config.Config
	deps       Deps
	exhibition *time.Location
	limiter    *security.LimiterStore
	router     *gin.Engine
}

func NewServer(log *slog.Logger, cfg config.Config, deps Deps) (*Server, error) {
	exhibition, err := time.LoadLocation(cfg.ExhibitionTZ)
	if err != nil {
		return nil, err
	}

	// Must run before gin.New() so the engine is built in release mode.
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		log:        log,
		cfg:        cfg,
		deps:       deps,
		exhibition: exhibition,
		limiter:    security.NewLimiterStore(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, 5*time.Minute),
		router:     gin.New(),
	}

	r := s.router
	r.Use(gin.Recovery())
	r.Use(s.corsMiddleware())
	r.Use(s.loggingMiddleware())
	r.Use(s.rateLimitMiddleware())

	api := r.Group("/api")
	{
		api.GET("/calendar/:user_id/:token", s.getFeed)
		api.POST("/register", s.register)
		api.POST("/check-login", s.checkLogin)

		user := api.Group("/user/:user_id")
		{
			user.GET("/profile", s.getProfile)
			user.POST("/reset-token", s.resetToken)
			user.DELETE("", s.deleteUser)
		}
	}

	r.GET("/api/v1/health", s.health)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 10*time.Second)
}
