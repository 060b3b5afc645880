// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"crypto/tls"
	"net"
	"time"
)

// Config is the fully-validated runtime configuration. It is built once at
// startup by ValidateConfig and treated as immutable for the process
// lifetime; every component receives it (or the section it needs) at
// construction time.
type Config struct {
	HTTP          HTTPConfig
	TLS           *TLSConfig
	CORS          *CORSConfig
	CacheControl  CacheControlConfig
	AccessControl AccessControlConfig
	IPFilter      *IPFilterConfig
	ContentTypes  *ContentTypesConfig
	RateLimiting  *RateLimitingConfig
}

// HTTPConfig is the listener address configuration.
type HTTPConfig struct {
	Host string
	Port int
}

// TLSVersion is one member of the supported protocol-version set.
type TLSVersion string

const (
	TLSVersion11 TLSVersion = "1.1"
	TLSVersion12 TLSVersion = "1.2"
	TLSVersion13 TLSVersion = "1.3"
)

// CryptoVersion maps to the crypto/tls version constant.
func (v TLSVersion) CryptoVersion() uint16 {
	switch v {
	case TLSVersion11:
		return tls.VersionTLS11
	case TLSVersion12:
		return tls.VersionTLS12
	case TLSVersion13:
		return tls.VersionTLS13
	default:
		return 0
	}
}

// TLSKeyPair holds one certificate/key pair, either as inline PEM text
// or as a pair of file paths depending on which TLSKeys arm it sits in.
type TLSKeyPair struct {
	Cert string
	Key  string
}

// TLSKeys is a two-armed sum: key material is supplied either inline or
// via file paths, never both and never partially. ValidateConfig enforces
// that exactly one arm is populated.
type TLSKeys struct {
	Inline *TLSKeyPair
	Files  *TLSKeyPair
}

// TLSConfig carries validated TLS parameters. The handshake itself is the
// HTTP server's business; this only says which versions to enable and
// where the key material comes from.
type TLSConfig struct {
	Versions []TLSVersion
	Keys     TLSKeys
}

// MinVersion returns the lowest enabled protocol version constant.
func (c *TLSConfig) MinVersion() uint16 {
	min := uint16(0)
	for _, v := range c.Versions {
		cv := v.CryptoVersion()
		if min == 0 || cv < min {
			min = cv
		}
	}
	return min
}

// MaxVersion returns the highest enabled protocol version constant.
func (c *TLSConfig) MaxVersion() uint16 {
	max := uint16(0)
	for _, v := range c.Versions {
		if cv := v.CryptoVersion(); cv > max {
			max = cv
		}
	}
	return max
}

// CORSConfig holds the validated cross-origin policy.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
}

// CacheControlConfig holds the global cache defaults. DefaultMaxAge is
// the only max-age in the system; buckets and objects override the
// policy, never the age.
type CacheControlConfig struct {
	DefaultPolicy CachePolicy
	DefaultMaxAge time.Duration
}

// AccessControlConfig governs the access-token filter.
type AccessControlConfig struct {
	TokensEnabled  bool
	LoopbackBypass bool
	Tokens         []string
}

// FilterMode tags a filter list as an allow-list or a deny-list.
// The two modes are mutually exclusive per filter.
type FilterMode int

const (
	FilterAllow FilterMode = iota + 1
	FilterDeny
)

func (m FilterMode) String() string {
	switch m {
	case FilterAllow:
		return "allow"
	case FilterDeny:
		return "deny"
	default:
		return "unknown"
	}
}

// IPFilterConfig restricts callers by source address.
type IPFilterConfig struct {
	Mode   FilterMode
	Blocks []*net.IPNet
}

// Match reports whether ip falls inside any configured block.
func (c *IPFilterConfig) Match(ip net.IP) bool {
	for _, block := range c.Blocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// ContentTypesConfig restricts the declared media type of write requests.
type ContentTypesConfig struct {
	Mode  FilterMode
	Types []string
}

// Match reports whether mediaType is one of the configured types.
// mediaType must already be normalized (lowercase, no parameters).
func (c *ContentTypesConfig) Match(mediaType string) bool {
	for _, t := range c.Types {
		if t == mediaType {
			return true
		}
	}
	return false
}

// RateLimitingConfig parameterizes the per-caller token bucket:
// one token refills every DefaultPeriod, up to DefaultBurstSize.
type RateLimitingConfig struct {
	DefaultPeriod    time.Duration
	DefaultBurstSize int
}
