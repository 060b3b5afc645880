// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"mime"
	"net"
	"net/url"
	"strings"
	"time"
)

// Built-in defaults used when the corresponding section or field is absent.
const (
	DefaultHTTPHost = "0.0.0.0"
	DefaultHTTPPort = 2048

	DefaultCachePolicyValue = CachePolicyNoCache
	DefaultCacheMaxAge      = 3600 * time.Second

	DefaultTokensEnabled  = true
	DefaultLoopbackBypass = false

	DefaultRateLimitPeriod    = time.Second
	DefaultRateLimitBurstSize = 10
)

// ConfigValidationError represents a configuration validation error
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigValidationResult contains the results of configuration validation
type ConfigValidationResult struct {
	Valid    bool
	Errors   []ConfigValidationError
	Warnings []string
}

// AddError adds an error to the result
func (r *ConfigValidationResult) AddError(field, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ConfigValidationError{Field: field, Message: message})
}

// AddWarning adds a warning to the result
func (r *ConfigValidationResult) AddWarning(message string) {
	r.Warnings = append(r.Warnings, message)
}

func (r *ConfigValidationResult) Error() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidateConfig merges a partial ConfigFile against the built-in defaults
// and returns a fully-populated Config, or a result listing every invalid
// field. Validation is pure: no I/O happens here, key files are only
// opened later by the HTTP server.
//
// A single bad element fails its whole section. A typo in one CORS origin
// must not silently under-restrict CORS.
func ValidateConfig(cf *ConfigFile) (*Config, *ConfigValidationResult) {
	result := &ConfigValidationResult{Valid: true}
	if cf == nil {
		cf = &ConfigFile{}
	}

	cfg := &Config{
		HTTP:          validateHTTP(cf.HTTP, result),
		TLS:           validateTLS(cf.TLS, result),
		CORS:          validateCORS(cf.CORS, result),
		CacheControl:  validateCacheControl(cf.CacheControl, result),
		AccessControl: validateAccessControl(cf.AccessControl, result),
		IPFilter:      validateIPFilter(cf.IPFilter, result),
		ContentTypes:  validateContentTypes(cf.ContentTypes, result),
		RateLimiting:  validateRateLimiting(cf.RateLimiting, result),
	}

	if !result.Valid {
		return nil, result
	}
	return cfg, result
}

func validateHTTP(in *HTTPConfigFile, result *ConfigValidationResult) HTTPConfig {
	out := HTTPConfig{Host: DefaultHTTPHost, Port: DefaultHTTPPort}
	if in == nil {
		return out
	}
	if in.Host != nil {
		if strings.TrimSpace(*in.Host) == "" {
			result.AddError("http.host", "host cannot be empty")
		} else {
			out.Host = *in.Host
		}
	}
	if in.Port != nil {
		if *in.Port < 1 || *in.Port > 65535 {
			result.AddError("http.port", fmt.Sprintf("port must be between 1 and 65535, got %d", *in.Port))
		} else {
			out.Port = *in.Port
		}
	}
	return out
}

func validateTLS(in *TLSConfigFile, result *ConfigValidationResult) *TLSConfig {
	if in == nil {
		return nil
	}

	out := &TLSConfig{}

	// Versions default to the full supported set when unspecified.
	if len(in.Versions) == 0 {
		out.Versions = []TLSVersion{TLSVersion11, TLSVersion12, TLSVersion13}
	} else {
		for _, raw := range in.Versions {
			v := TLSVersion(raw)
			if v.CryptoVersion() == 0 {
				result.AddError("tls.versions", fmt.Sprintf("unsupported TLS version %q (supported: 1.1, 1.2, 1.3)", raw))
				continue
			}
			out.Versions = append(out.Versions, v)
		}
	}

	// Key material must arrive either entirely inline or entirely as
	// file paths. Anything else (nothing, a partial pair, a mix) is the
	// invalid-TLS-keys case.
	inline := in.Cert != nil || in.Key != nil
	files := in.CertFile != nil || in.KeyFile != nil
	switch {
	case inline && files:
		result.AddError("tls", "inline keys and key files are mutually exclusive")
	case inline:
		if in.Cert == nil || in.Key == nil {
			result.AddError("tls", "inline keys require both cert and key")
			break
		}
		out.Keys.Inline = &TLSKeyPair{Cert: *in.Cert, Key: *in.Key}
	case files:
		if in.CertFile == nil || in.KeyFile == nil {
			result.AddError("tls", "key files require both cert-file and key-file")
			break
		}
		out.Keys.Files = &TLSKeyPair{Cert: *in.CertFile, Key: *in.KeyFile}
	default:
		result.AddError("tls", "key material is required: set cert/key or cert-file/key-file")
	}

	return out
}

var allowedHTTPMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "OPTIONS": true, "CONNECT": true, "TRACE": true,
}

func validateCORS(in *CORSConfigFile, result *ConfigValidationResult) *CORSConfig {
	if in == nil {
		return nil
	}

	out := &CORSConfig{}
	if in.AllowCredentials != nil {
		out.AllowCredentials = *in.AllowCredentials
	}

	for _, origin := range in.AllowedOrigins {
		if origin == "*" {
			out.AllowedOrigins = append(out.AllowedOrigins, origin)
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" || u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
			result.AddError("cors.allowed-origins", fmt.Sprintf("%q is not a valid origin (expected scheme://host[:port])", origin))
			continue
		}
		out.AllowedOrigins = append(out.AllowedOrigins, u.Scheme+"://"+u.Host)
	}

	for _, method := range in.AllowedMethods {
		m := strings.ToUpper(strings.TrimSpace(method))
		if !allowedHTTPMethods[m] {
			result.AddError("cors.allowed-methods", fmt.Sprintf("%q is not an HTTP method", method))
			continue
		}
		out.AllowedMethods = append(out.AllowedMethods, m)
	}

	for _, header := range in.AllowedHeaders {
		if !isHeaderName(header) {
			result.AddError("cors.allowed-headers", fmt.Sprintf("%q is not a valid header name", header))
			continue
		}
		out.AllowedHeaders = append(out.AllowedHeaders, header)
	}

	return out
}

// isHeaderName checks the RFC 7230 token grammar.
func isHeaderName(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.ContainsRune("!#$%&'*+-.^_`|~", c):
		default:
			return false
		}
	}
	return true
}

func validateCacheControl(in *CacheControlConfigFile, result *ConfigValidationResult) CacheControlConfig {
	out := CacheControlConfig{DefaultPolicy: DefaultCachePolicyValue, DefaultMaxAge: DefaultCacheMaxAge}
	if in == nil {
		return out
	}
	if in.DefaultPolicy != nil {
		policy, err := ParseCachePolicy(*in.DefaultPolicy)
		if err != nil {
			result.AddError("cache-control.default-policy", err.Error())
		} else {
			out.DefaultPolicy = policy
		}
	}
	if in.DefaultMaxAge != nil {
		if *in.DefaultMaxAge < 0 {
			result.AddError("cache-control.default-max-age", "max-age cannot be negative")
		} else {
			out.DefaultMaxAge = time.Duration(*in.DefaultMaxAge) * time.Second
		}
	}
	return out
}

func validateAccessControl(in *AccessControlConfigFile, result *ConfigValidationResult) AccessControlConfig {
	out := AccessControlConfig{TokensEnabled: DefaultTokensEnabled, LoopbackBypass: DefaultLoopbackBypass}
	if in == nil {
		return out
	}
	if in.TokensEnabled != nil {
		out.TokensEnabled = *in.TokensEnabled
	}
	if in.LoopbackBypass != nil {
		out.LoopbackBypass = *in.LoopbackBypass
	}
	for _, token := range in.Tokens {
		if strings.TrimSpace(token) == "" {
			result.AddError("access-control.tokens", "tokens cannot be empty strings")
			continue
		}
		out.Tokens = append(out.Tokens, token)
	}
	if out.TokensEnabled && len(out.Tokens) == 0 {
		result.AddWarning("access-control: tokens are enabled but none are configured, all non-bypassed requests will be rejected")
	}
	return out
}

func validateIPFilter(in *IPFilterConfigFile, result *ConfigValidationResult) *IPFilterConfig {
	if in == nil {
		return nil
	}

	out := &IPFilterConfig{}
	var raw []string
	switch {
	case len(in.Allow) > 0 && len(in.Deny) > 0:
		result.AddError("ip-filter", "allow and deny lists are mutually exclusive")
		return out
	case len(in.Allow) > 0:
		out.Mode = FilterAllow
		raw = in.Allow
	case len(in.Deny) > 0:
		out.Mode = FilterDeny
		raw = in.Deny
	default:
		result.AddError("ip-filter", "requires either an allow list or a deny list")
		return out
	}

	for _, entry := range raw {
		_, block, err := net.ParseCIDR(entry)
		if err != nil {
			result.AddError("ip-filter", fmt.Sprintf("%q is not a valid CIDR block", entry))
			continue
		}
		out.Blocks = append(out.Blocks, block)
	}
	return out
}

func validateContentTypes(in *ContentTypesConfigFile, result *ConfigValidationResult) *ContentTypesConfig {
	if in == nil {
		return nil
	}

	out := &ContentTypesConfig{}
	var raw []string
	switch {
	case len(in.Allow) > 0 && len(in.Deny) > 0:
		result.AddError("content-types", "allow and deny lists are mutually exclusive")
		return out
	case len(in.Allow) > 0:
		out.Mode = FilterAllow
		raw = in.Allow
	case len(in.Deny) > 0:
		out.Mode = FilterDeny
		raw = in.Deny
	default:
		result.AddError("content-types", "requires either an allow list or a deny list")
		return out
	}

	for _, entry := range raw {
		mediaType, _, err := mime.ParseMediaType(entry)
		if err != nil || !strings.Contains(mediaType, "/") {
			result.AddError("content-types", fmt.Sprintf("%q is not a valid MIME type", entry))
			continue
		}
		out.Types = append(out.Types, mediaType)
	}
	return out
}

func validateRateLimiting(in *RateLimitingConfigFile, result *ConfigValidationResult) *RateLimitingConfig {
	if in == nil {
		return nil
	}

	out := &RateLimitingConfig{
		DefaultPeriod:    DefaultRateLimitPeriod,
		DefaultBurstSize: DefaultRateLimitBurstSize,
	}
	if in.DefaultPeriod != nil {
		period, err := time.ParseDuration(*in.DefaultPeriod)
		if err != nil {
			result.AddError("rate-limiting.default-period", fmt.Sprintf("%q is not a valid duration", *in.DefaultPeriod))
		} else if period <= 0 {
			result.AddError("rate-limiting.default-period", "period must be positive")
		} else {
			out.DefaultPeriod = period
		}
	}
	if in.DefaultBurstSize != nil {
		if *in.DefaultBurstSize < 1 {
			result.AddError("rate-limiting.default-burst-size", "burst size must be at least 1")
		} else {
			out.DefaultBurstSize = *in.DefaultBurstSize
		}
	}
	return out
}
