package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bizsim/bizsim/api"
	"github.com/bizsim/bizsim/sim/store"
)

var (
	serveAddr    string // Listen address
	serveWorkers int    // Concurrent sweep points per request
)

// serveCmd starts the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulator over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			logrus.Warnf("Failed to load .env: %v", err)
		}
		addr := envOverride(cmd, "addr", serveAddr, "BIZSIM_ADDR")
		db := envOverride(cmd, "db", dbPath, "BIZSIM_DB")
		if mode := os.Getenv("GIN_MODE"); mode != "" {
			gin.SetMode(mode)
		}

		err := withStore(db, func(st *store.Store) error {
			if st != nil {
				logrus.Infof("persisting runs to %s", db)
			}
			var origins []string
			if v := os.Getenv("BIZSIM_CORS_ORIGINS"); v != "" {
				origins = strings.Split(v, ",")
			}
			srv := api.NewServer(st, api.Options{AllowedOrigins: origins, SweepWorkers: serveWorkers})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, addr)
		})
		if err != nil {
			logrus.Fatalf("Server failed: %v", err)
		}
	},
}

// envOverride returns the flag value when set on the command line, else the
// environment variable when present, else the flag default.
func envOverride(cmd *cobra.Command, flag, value, env string) string {
	if cmd.Flags().Changed(flag) {
		return value
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return value
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address (env BIZSIM_ADDR)")
	serveCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database for persisting runs (env BIZSIM_DB)")
	serveCmd.Flags().IntVar(&serveWorkers, "sweep-workers", 0, "Concurrent sweep points per request (0 = unbounded)")

	rootCmd.AddCommand(serveCmd)
}
