package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/auth"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/cachestore"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/middleware"
	"github.com/reelshelf/reelshelf/pkg/reelshelf/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			db, err := ctx.ensureDB()
			if err != nil {
				return err
			}

			if auth.UsingDevSecret() {
				zap.L().Warn("jwt.secret not set, signing tokens with the development secret")
			}
			if !cfg.IsDevelopment() {
				gin.SetMode(gin.ReleaseMode)
			}

			store, err := cachestore.New(cfg.Cache.Driver, cfg.Cache.RedisURL)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
				RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
				Burst:             cfg.RateLimit.Burst,
			})
			go limiter.Run(runCtx.Done())

			srv := &http.Server{
				Addr:              ":" + strconv.Itoa(cfg.Host.Port),
				Handler:           server.NewRouter(cfg, db, store, limiter),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				zap.L().Info("Starting reelshelf server", zap.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-runCtx.Done():
			}

			zap.L().Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
