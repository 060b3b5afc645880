// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

// Package api exposes the catalog over HTTP. Every request passes the
// gate chain before its handler runs; handlers translate catalog results
// and errors into the wire format.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/objectionfs/objection/pkg/catalog"
	"github.com/objectionfs/objection/pkg/gate"
	"github.com/objectionfs/objection/pkg/logger"
	"github.com/objectionfs/objection/pkg/types"
	"github.com/objectionfs/objection/pkg/utils"
)

// Server routes HTTP traffic to the catalog engine.
type Server struct {
	engine *catalog.Engine
	chain  *gate.Chain
	cfg    *types.Config

	httpServer *http.Server
}

func NewServer(engine *catalog.Engine, chain *gate.Chain, cfg *types.Config) *Server {
	s := &Server{
		engine: engine,
		chain:  chain,
		cfg:    cfg,
	}
	s.httpServer = &http.Server{Handler: s.Handler()}
	return s
}

// Handler builds the router. Exposed separately so tests can drive the
// server through httptest without binding a socket.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(accessLog)

	r.Route("/v1/buckets", func(r chi.Router) {
		r.Get("/", s.gated(gate.OpList, s.handleListBuckets))
		r.Post("/", s.gated(gate.OpWrite, s.handleCreateBucket))

		r.Route("/{bucket}", func(r chi.Router) {
			r.Get("/", s.gated(gate.OpRead, s.handleGetBucket))
			r.Patch("/", s.gated(gate.OpWrite, s.handleUpdateBucket))
			r.Delete("/", s.gated(gate.OpDelete, s.handleDeleteBucket))

			r.Get("/objects", s.gated(gate.OpList, s.handleListObjects))

			// Object keys may contain slashes, so the key is the
			// wildcard remainder of the path.
			r.Put("/objects/*", s.gated(gate.OpWrite, s.handlePutObject))
			r.Get("/objects/*", s.gated(gate.OpRead, s.handleGetObject))
			r.Head("/objects/*", s.gated(gate.OpRead, s.handleHeadObject))
			r.Delete("/objects/*", s.gated(gate.OpDelete, s.handleDeleteObject))
			r.Options("/objects/*", s.gated(gate.OpRead, s.handlePreflight))
			r.Options("/", s.gated(gate.OpRead, s.handlePreflight))
		})
		r.Options("/", s.gated(gate.OpList, s.handlePreflight))
	})

	return r
}

// gated wraps a handler with the admission chain. A rejection writes the
// filter's APIError and the handler never runs; End (a completed CORS
// preflight) also stops here.
func (s *Server) gated(op gate.Operation, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := gate.NewData(r.Context(), r)
		d.Op = op
		d.Bucket = chi.URLParam(r, "bucket")
		d.Key = objectKey(r)
		d.ResponseWriter = w

		filterName, err := s.chain.Run(d)
		if err != nil {
			logger.Ctx(r.Context()).Debug().
				Str("filter", filterName).Err(err).
				Str("path", r.URL.Path).
				Msg("request rejected")
			writeError(w, r, err)
			return
		}
		if filterName != "" {
			// A filter fully handled the request.
			return
		}
		next(w, r)
	}
}

// handlePreflight exists so OPTIONS requests are routed through the
// chain; the CORS filter produces the actual response.
func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// Start binds the listener (TLS when configured) and serves until
// Shutdown. The error channel receives at most one serve failure.
func (s *Server) Start() (<-chan error, error) {
	addr := utils.JoinHostPort(s.cfg.HTTP.Host, s.cfg.HTTP.Port)
	listener, err := utils.NewListener(addr, 0)
	if err != nil {
		return nil, err
	}

	if s.cfg.TLS != nil {
		tlsConf, err := utils.BuildServerTLSConfig(s.cfg.TLS)
		if err != nil {
			listener.Close()
			return nil, err
		}
		s.httpServer.TLSConfig = tlsConf
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Bool("tls", s.cfg.TLS != nil).Msg("API server listening")
		var err error
		if s.cfg.TLS != nil {
			err = s.httpServer.ServeTLS(listener, "", "")
		} else {
			err = s.httpServer.Serve(listener)
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
