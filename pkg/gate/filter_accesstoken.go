// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"crypto/subtle"
	"net"
	"strings"

	"github.com/objectionfs/objection/pkg/api/apierr"
	"github.com/objectionfs/objection/pkg/types"
)

// AccessTokenFilter rejects requests that do not present a configured
// token, unless the caller is on loopback and bypass is enabled.
// Tokens arrive as "Authorization: Bearer <token>" or in the
// X-Access-Token header.
type AccessTokenFilter struct {
	cfg    types.AccessControlConfig
	tokens map[string]struct{}
}

func NewAccessTokenFilter(cfg types.AccessControlConfig) *AccessTokenFilter {
	tokens := make(map[string]struct{}, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		tokens[t] = struct{}{}
	}
	return &AccessTokenFilter{cfg: cfg, tokens: tokens}
}

func (f *AccessTokenFilter) Type() string {
	return "access_token"
}

func (f *AccessTokenFilter) Run(d *Data) (Response, error) {
	if !f.cfg.TokensEnabled {
		return Next{}, nil
	}

	if f.cfg.LoopbackBypass {
		// The bypass keys off the connection peer; an X-Forwarded-For
		// claiming 127.0.0.1 does not count.
		if ip := net.ParseIP(RemoteIP(d.Req)); ip != nil && ip.IsLoopback() {
			return Next{}, nil
		}
	}

	token := requestToken(d)
	if token == "" || !f.validToken(token) {
		return nil, apierr.ErrUnauthorized
	}
	return Next{}, nil
}

func (f *AccessTokenFilter) validToken(token string) bool {
	// Constant-time compare against every configured token.
	valid := false
	for configured := range f.tokens {
		if len(configured) == len(token) &&
			subtle.ConstantTimeCompare([]byte(configured), []byte(token)) == 1 {
			valid = true
		}
	}
	return valid
}

func requestToken(d *Data) string {
	if auth := d.Req.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(d.Req.Header.Get("X-Access-Token"))
}
