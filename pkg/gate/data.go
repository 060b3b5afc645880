// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// Operation classifies a request for the filters that care about it.
type Operation int

const (
	OpRead Operation = iota
	OpWrite
	OpList
	OpDelete
)

// Data carries per-request metadata through the filter chain.
type Data struct {
	Ctx context.Context
	Req *http.Request
	Op  Operation

	Bucket string
	Key    string

	// ResponseWriter allows filters to write HTTP responses directly
	// (CORS headers, completed preflights).
	ResponseWriter http.ResponseWriter
}

func NewData(ctx context.Context, req *http.Request) *Data {
	return &Data{
		Ctx: ctx,
		Req: req,
	}
}

// ClientIP extracts the caller's address, preferring proxy headers.
// Forwarding headers are client-supplied and trivially forged, so this
// is only fit for soft decisions: rate-limit keying and log lines.
// Anything that admits or rejects a request uses RemoteIP.
func ClientIP(r *http.Request) string {
	// X-Forwarded-For may contain multiple IPs, take the first.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ips := strings.Split(xff, ","); len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return RemoteIP(r)
}

// RemoteIP extracts the address of the connection peer, ignoring any
// forwarding headers.
func RemoteIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
