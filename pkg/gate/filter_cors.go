// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"net/http"
	"strings"

	"github.com/objectionfs/objection/pkg/api/apierr"
	"github.com/objectionfs/objection/pkg/types"
)

// CORSFilter computes cross-origin response headers and answers
// preflights. Same-origin and non-browser requests (no Origin header)
// are never rejected here.
type CORSFilter struct {
	cfg *types.CORSConfig

	allowedHeaders map[string]bool // lowercased
	allowedMethods map[string]bool
}

func NewCORSFilter(cfg *types.CORSConfig) *CORSFilter {
	f := &CORSFilter{
		cfg:            cfg,
		allowedHeaders: make(map[string]bool, len(cfg.AllowedHeaders)),
		allowedMethods: make(map[string]bool, len(cfg.AllowedMethods)),
	}
	for _, h := range cfg.AllowedHeaders {
		f.allowedHeaders[strings.ToLower(h)] = true
	}
	for _, m := range cfg.AllowedMethods {
		f.allowedMethods[m] = true
	}
	return f
}

func (f *CORSFilter) Type() string {
	return "cors"
}

func (f *CORSFilter) Run(d *Data) (Response, error) {
	origin := d.Req.Header.Get("Origin")
	if origin == "" {
		return Next{}, nil
	}

	if d.Req.Method == http.MethodOptions && d.Req.Header.Get("Access-Control-Request-Method") != "" {
		return f.preflight(d, origin)
	}

	// Actual cross-origin request: attach the headers when the origin is
	// allowed; the browser enforces the rest.
	if f.originAllowed(origin) {
		f.setOriginHeaders(d.ResponseWriter, origin)
	}
	return Next{}, nil
}

func (f *CORSFilter) preflight(d *Data, origin string) (Response, error) {
	if !f.originAllowed(origin) {
		return nil, apierr.ErrCORSRejected
	}

	method := d.Req.Header.Get("Access-Control-Request-Method")
	if len(f.allowedMethods) > 0 && !f.allowedMethods[method] {
		return nil, apierr.ErrCORSRejected
	}

	if raw := d.Req.Header.Get("Access-Control-Request-Headers"); raw != "" {
		for _, h := range strings.Split(raw, ",") {
			if !f.allowedHeaders[strings.ToLower(strings.TrimSpace(h))] {
				return nil, apierr.ErrCORSRejected
			}
		}
	}

	w := d.ResponseWriter
	f.setOriginHeaders(w, origin)
	if len(f.cfg.AllowedMethods) > 0 {
		w.Header().Set("Access-Control-Allow-Methods", strings.Join(f.cfg.AllowedMethods, ", "))
	}
	if len(f.cfg.AllowedHeaders) > 0 {
		w.Header().Set("Access-Control-Allow-Headers", strings.Join(f.cfg.AllowedHeaders, ", "))
	}
	w.WriteHeader(http.StatusNoContent)
	return End{}, nil
}

func (f *CORSFilter) originAllowed(origin string) bool {
	for _, allowed := range f.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (f *CORSFilter) setOriginHeaders(w http.ResponseWriter, origin string) {
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Vary", "Origin")
	if f.cfg.AllowCredentials {
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
}
