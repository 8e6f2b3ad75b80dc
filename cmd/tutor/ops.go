package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-tutor/internal/graph"
)

// setupOpsRouter exposes health, metrics and read-only learner state.
// Turns are never accepted over HTTP.
func (app *application) setupOpsRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", slog.String("error", err.Error()))
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/users/{user}", func(r chi.Router) {
		r.Get("/due", app.handleDue)
		r.Get("/session", app.handleSession)
	})
	return r
}

func (app *application) handleDue(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(chi.URLParam(r, "user"))
	if err != nil {
		app.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			app.writeJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
	}

	due, err := app.scheduler.DueConcepts(r.Context(), userID, time.Now().UTC(), limit)
	if err != nil {
		app.logger.ErrorContext(r.Context(), "failed to list due concepts",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		app.writeJSONError(w, http.StatusInternalServerError, "failed to list due concepts")
		return
	}
	app.writeJSON(w, http.StatusOK, due)
}

func (app *application) handleSession(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(chi.URLParam(r, "user"))
	if err != nil {
		app.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := app.engine.Session(r.Context(), userID)
	if err != nil {
		app.writeJSONError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	app.writeJSON(w, http.StatusOK, sess)
}

func (app *application) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (app *application) writeJSONError(w http.ResponseWriter, status int, msg string) {
	app.writeJSON(w, status, map[string]string{"error": msg})
}

// startOpsServer serves handler on addr until ctx is cancelled, then shuts
// down gracefully.
func (app *application) startOpsServer(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("starting ops server", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("ops server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ops server shutdown failed: %w", err)
	}
	app.logger.Info("ops server stopped")
	return nil
}

// startGraphWatcher hot-reloads the concept graph when enabled in config.
func (app *application) startGraphWatcher(ctx context.Context) {
	if !app.config.Graph.Watch {
		return
	}
	w := graph.NewWatcher(app.config.Graph.Path, app.graph, app.config.Graph.Debounce, app.logger)
	go func() {
		if err := w.Run(ctx); err != nil {
			app.logger.Error("concept graph watcher stopped", slog.String("error", err.Error()))
		}
	}()
}

func newServeOpsCmd(g *globals) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health, metrics and read-only learner state over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = g.cfg.Metrics.Addr
			}
			if addr == "" {
				return errors.New("no listen address: pass --addr or set metrics.addr")
			}

			app, err := newApplication(cmd.Context(), g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer app.cleanup()

			app.startGraphWatcher(cmd.Context())
			return app.startOpsServer(cmd.Context(), addr, app.setupOpsRouter())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: metrics.addr)")
	return cmd
}
