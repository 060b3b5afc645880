// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"crypto/tls"
	"fmt"

	"github.com/objectionfs/objection/pkg/types"
)

// BuildServerTLSConfig turns validated TLS parameters into a crypto/tls
// server configuration. Returns nil when TLS is not configured.
func BuildServerTLSConfig(cfg *types.TLSConfig) (*tls.Config, error) {
	if cfg == nil {
		return nil, nil
	}

	var cert tls.Certificate
	var err error
	switch {
	case cfg.Keys.Inline != nil:
		cert, err = tls.X509KeyPair([]byte(cfg.Keys.Inline.Cert), []byte(cfg.Keys.Inline.Key))
		if err != nil {
			return nil, fmt.Errorf("failed to load inline key pair: %w", err)
		}
	case cfg.Keys.Files != nil:
		cert, err = tls.LoadX509KeyPair(cfg.Keys.Files.Cert, cfg.Keys.Files.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to load key pair: %w", err)
		}
	default:
		return nil, fmt.Errorf("no TLS key material configured")
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   cfg.MinVersion(),
		MaxVersion:   cfg.MaxVersion(),
	}, nil
}
