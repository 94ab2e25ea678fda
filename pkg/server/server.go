package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/c9s/mangogate/pkg/config"
	"github.com/c9s/mangogate/pkg/mango"
)

// Server exposes the gateway over HTTP. It owns no state beyond the
// registry reference; every request resolves its connector through the
// registry.
type Server struct {
	Config   *config.Config
	Registry *mango.Registry
}

func New(cfg *config.Config, registry *mango.Registry) *Server {
	return &Server{
		Config:   cfg,
		Registry: registry,
	}
}

// Run blocks until the context is cancelled, then shuts the listener down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	r := s.newEngine()

	srv := &http.Server{
		Addr:    s.Config.Listen,
		Handler: r,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("http server shutdown error")
		}
	}()

	logrus.Infof("listening on %s", s.Config.Listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) newEngine() *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowMethods:     []string{"GET", "POST", "DELETE"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(requestID())

	s.registerRoutes(r)
	return r
}

// requestID tags every request so venue-side failures can be correlated
// with access logs.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}

		c.Set("requestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
