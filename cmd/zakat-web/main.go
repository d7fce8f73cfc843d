// Command zakat-web serves the browser front end of the zakat tracker.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"zakat-tracker/internal/config"
	"zakat-tracker/internal/handlers"
	"zakat-tracker/internal/logger"
	"zakat-tracker/web"
)

func setupRouter(h *handlers.Handlers, static fs.FS, log *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))

	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /auth", h.AuthForm)
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/register", h.Register)
	mux.HandleFunc("POST /logout", h.Logout)

	mux.HandleFunc("GET /dashboard", h.Dashboard)
	mux.HandleFunc("POST /dashboard/entries", h.CreateEntry)
	mux.HandleFunc("POST /dashboard/entries/{id}/delete", h.DeleteEntry)

	return logger.Middleware(log)(mux)
}

// Run serves the front end until ctx is done.
func Run(ctx context.Context) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.New(cfg.Env)
	defer func() { _ = log.Sync() }()

	templates, err := fs.Sub(web.TemplatesFS, "templates")
	if err != nil {
		return err
	}
	static, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		return err
	}

	h := handlers.NewHandlers(cfg.APIURL, templates, cfg.SecureCookie, cfg.RequestTimeout, log)
	srv := &http.Server{
		Addr:           ":" + cfg.WebPort,
		Handler:        setupRouter(h, static, log),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("web front end listening", zap.String("addr", srv.Addr), zap.String("api", cfg.APIURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down web front end")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
