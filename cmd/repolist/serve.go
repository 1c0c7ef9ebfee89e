package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Sternrassler/repolist-client/pkg/browser"
	"github.com/Sternrassler/repolist-client/pkg/detail"
	"github.com/Sternrassler/repolist-client/pkg/metrics"
	"github.com/Sternrassler/repolist-client/pkg/model"
	"github.com/Sternrassler/repolist-client/pkg/pagination"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const headerRequestID = "X-Request-ID"

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the repository browser as a JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Addr, _ = cmd.Flags().GetString("addr")
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	githubClient, cleanup, err := a.newClient(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	b := browser.New(githubClient,
		browser.WithLogger(log.Logger),
		browser.WithListerOptions(pagination.WithPrefetchThreshold(a.cfg.PrefetchThreshold)),
	)

	server := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           newHandler(b),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", a.cfg.Addr).
			Str("user_agent", a.cfg.UserAgent).
			Bool("redis", a.cfg.RedisURL != "").
			Msg("Starting repolist server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// loadResponse is returned by every POST route.
type loadResponse struct {
	Outcome string        `json:"outcome"`
	Error   string        `json:"error,omitempty"`
	Detail  *detail.Entry `json:"detail,omitempty"`
}

func newHandler(b *browser.Browser) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /repos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, b.Snapshot())
	})

	mux.HandleFunc("POST /repos/refresh", func(w http.ResponseWriter, r *http.Request) {
		outcome := b.LoadFirstPage(r.Context())
		writeOutcome(w, r, outcome, b.Snapshot().List.Err, nil)
	})

	mux.HandleFunc("POST /repos/more", func(w http.ResponseWriter, r *http.Request) {
		ref, ok := lookup(w, b, r.URL.Query().Get("after"))
		if !ok {
			return
		}
		outcome := b.LoadNextPageIfNeeded(r.Context(), ref)
		writeOutcome(w, r, outcome, b.Snapshot().List.Err, nil)
	})

	mux.HandleFunc("POST /repos/{id}/stars", func(w http.ResponseWriter, r *http.Request) {
		repo, ok := lookup(w, b, r.PathValue("id"))
		if !ok {
			return
		}
		outcome := b.LoadDetail(r.Context(), repo)
		var entry *detail.Entry
		if e, found := b.Snapshot().Details[repo.ID]; found {
			entry = &e
		}
		writeOutcome(w, r, outcome, "", entry)
	})

	return withRequestID(mux)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// lookup resolves a repository id from the loaded listing, writing an error
// response when it is invalid or unknown.
func lookup(w http.ResponseWriter, b *browser.Browser, rawID string) (model.Repository, bool) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid repository id"})
		return model.Repository{}, false
	}
	repo, ok := b.Repository(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "repository not loaded"})
		return model.Repository{}, false
	}
	return repo, true
}

func writeOutcome(w http.ResponseWriter, r *http.Request, outcome model.LoadOutcome, errMsg string, entry *detail.Entry) {
	// The caller went away; there is nobody to answer.
	if outcome == model.OutcomeCancelled {
		zerolog.Ctx(r.Context()).Debug().Msg("Request cancelled by client")
		return
	}

	resp := loadResponse{Outcome: outcome.String(), Detail: entry}
	if outcome == model.OutcomeFailed {
		resp.Error = errMsg
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

// statusRecorder captures the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestID tags each request with an X-Request-ID (kept when the caller
// sends one) and logs its completion.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(headerRequestID, requestID)

		logger := log.With().Str("request_id", requestID).Logger()
		r = r.WithContext(logger.WithContext(r.Context()))

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	})
}
