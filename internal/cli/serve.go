package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/ratlab/pkg/adapters/http"
	"github.com/aretw0/ratlab/pkg/adapters/mcp"
)

const shutdownTimeout = 5 * time.Second

// NewHTTPHandler builds the HTTP API for app.
func NewHTTPHandler(app *App) (http.Handler, error) {
	opts := []httpAdapter.Option{
		httpAdapter.WithLogger(app.Logger),
		httpAdapter.WithStreams(app.Streams),
	}
	if app.Config.HTTP.Metrics {
		opts = append(opts, httpAdapter.WithMetrics(app.Registry))
	}
	return httpAdapter.NewHandler(app.Manager, opts...)
}

// Serve runs the HTTP API on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, app *App, addr string) error {
	handler, err := NewHTTPHandler(app)
	if err != nil {
		return fmt.Errorf("failed to build http handler: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		app.Logger.Info("Starting HTTP server", "addr", addr, "engine", app.Config.Engine, "store", app.Config.Store.Kind)
		printSystemMessage(stderr, "Listening on %s", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		printSystemMessage(stderr, "Shutting down...")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			if closeErr := srv.Close(); closeErr != nil {
				return fmt.Errorf("error killing server: %w", closeErr)
			}
		}
		app.Logger.Info("HTTP server stopped")
		return nil
	}
}

// ServeMCP runs the MCP server over the given transport ("stdio" or "sse").
func ServeMCP(ctx context.Context, app *App, transport, addr string) error {
	srv := mcp.NewServer(app.Manager, mcp.WithLogger(app.Logger))

	switch transport {
	case "stdio":
		app.Logger.Info("Starting MCP server (stdio)")
		return srv.ServeStdio()
	case "sse":
		return srv.ServeSSE(ctx, addr, "http://"+baseHost(addr))
	default:
		return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
	}
}

// baseHost turns ":8080" into "localhost:8080".
func baseHost(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
