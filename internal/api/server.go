// Package api exposes the extraction pipeline over HTTP. One POST endpoint
// runs extractions; failures are reported in-band in the response body, so
// non-200 statuses only ever mean the request itself was malformed.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/applypilot/jobextract/internal/app"
)

// Extractor is the part of *app.App the handlers need.
type Extractor interface {
	ExtractJob(ctx context.Context, req app.Request) app.Response
}

type Server struct {
	Addr      string
	Extractor Extractor

	// Version is reported by the health endpoint. Optional.
	Version string
}

// Router assembles the chi router with request IDs, panic recovery and
// zerolog access logging.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog)

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/extract", s.handleExtract)

	return r
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then drains
// in-flight requests before returning.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info().Str("addr", s.Addr).Msg("http server listening")

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return err
		}
		log.Info().Msg("http server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
