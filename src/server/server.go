package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"futuresexecutor/src/auth"
	"futuresexecutor/src/handler"
	"futuresexecutor/src/model"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

type CycleLister interface {
	FindRecent(ctx context.Context, symbol string, limit int) ([]model.CycleRecord, error)
}

// NewRouter mounts /healthcheck, /stats and, when cycles is not nil, /cycles.
func NewRouter(cfg *Config, board *handler.StatsBoard, cycles CycleLister, symbol string) http.Handler {
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})

	r.Group(func(r chi.Router) {
		if cfg.StatsUser != "" {
			r.Use(auth.BasicAuth(cfg.StatsUser, cfg.StatsPasswordHash))
		}
		r.Get("/stats", handler.StatsHandler(board))
		if cycles != nil {
			r.Get("/cycles", handler.RecentCyclesHandler(cycles, symbol))
		}
	})
	return r
}

// Run serves h on cfg.Port until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, cfg *Config, h http.Handler) error {
	addr := ":" + cfg.Port
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return serve(ctx, ln, h)
}

func serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("Server crashed")
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
		return err
	}
	return nil
}
