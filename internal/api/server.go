package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"admin-mirror/internal/config"
	"admin-mirror/internal/mirror"
	"admin-mirror/internal/redis"
	"admin-mirror/internal/security"
)

type Server struct {
	log     *slog.Logger
	mirror  *mirror.AdminService
	sweep   *mirror.SweepJob
	redis   *redis.Client
	cfg     config.Config
	router  *gin.Engine
	limiter *security.LimiterStore
}

// NewServer wires the lookup API over the live mirror. redisClient may be
// nil; rate limiting then falls back to the in-process limiter.
func NewServer(log *slog.Logger, adminService *mirror.AdminService, sweep *mirror.SweepJob, redisClient *redis.Client, cfg config.Config) *Server {
	// the mode must be set before gin.New, or the engine comes up in debug mode
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		log:     log,
		mirror:  adminService,
		sweep:   sweep,
		redis:   redisClient,
		cfg:     cfg,
		router:  gin.New(),
		limiter: security.NewLimiterStore(10, 30, 10*time.Minute),
	}

	r := s.router
	r.Use(gin.Recovery())
	r.Use(s.corsMiddleware())
	r.Use(s.loggingMiddleware())
	r.Use(s.inputValidationMiddleware())
	r.Use(s.rateLimitMiddleware())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/accounts/:id", s.getAccount)
		v1.GET("/accounts/:id/auths", s.getAccountAuths)
		v1.GET("/accounts/by-email/:name", s.getAccountsByEmail)
		v1.GET("/accounts/by-note-ref/:id", s.getAccountsByNoteRef)
		v1.GET("/accounts/by-browser/:id", s.getAccountsByBrowser)
		v1.GET("/origins/:ip", s.getOrigin)
		v1.GET("/auths/:id", s.getAuth)
		v1.GET("/ponies/:id", s.getPony)
		v1.GET("/events/:id", s.getEvent)
		v1.GET("/feed", s.feed)
		v1.GET("/health", s.health)

		admin := v1.Group("/admin")
		admin.Use(s.adminAuthMiddleware())
		{
			admin.POST("/removed/:kind/:id", s.removedItem)
			admin.POST("/sweep", s.runSweep)
			admin.POST("/spam/:id", s.trackSpam)
			admin.POST("/report/:id", s.trackReport)
		}
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 10*time.Second)
}
