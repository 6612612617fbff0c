// Package api exposes the simulator over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/bizsim/bizsim/sim/store"
)

// Options configures a Server.
type Options struct {
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
	// SweepWorkers bounds concurrent sweep points per request; <= 0 is unbounded.
	SweepWorkers int
}

// Server serves simulation requests. The store is optional; without it runs
// are not persisted and the /runs endpoints answer 503.
type Server struct {
	store *store.Store
	opts  Options
}

// NewServer creates a server backed by st, which may be nil.
func NewServer(st *store.Store, opts Options) *Server {
	return &Server{store: st, opts: opts}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger())
	router.Use(ErrorHandler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": s.store != nil})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/variants", s.ListVariants)
		v1.GET("/presets", s.ListPresets)
		v1.POST("/simulations", s.RunSimulation)
		v1.POST("/sweeps", s.RunSweep)
		v1.GET("/runs", s.ListRuns)
		v1.GET("/runs/:id", s.GetRun)
	}

	router.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	return router
}

// Handler returns the router wrapped with CORS handling.
func (s *Server) Handler() http.Handler {
	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.Router())
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. Returns nil on clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.Warnf("server shutdown: %v", err)
		}
	}()

	logrus.Infof("listening on %s", addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
