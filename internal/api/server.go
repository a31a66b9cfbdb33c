package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/richard-senior/matchpredict/internal/logger"
	"github.com/richard-senior/matchpredict/pkg/predictor"
)

// NewHTTPServer wraps the routes of svc in an http.Server.
func NewHTTPServer(addr string, svc predictor.Predictor, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        NewAPIHandler(svc).SetupRoutes(),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server) error {
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting on", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
