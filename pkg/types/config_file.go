// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"

	"github.com/spf13/viper"
)

// ConfigFile is the partially-specified configuration as read from disk.
// Every section and every field is optional here; ValidateConfig merges
// it against the built-in defaults and produces the immutable Config.
type ConfigFile struct {
	HTTP          *HTTPConfigFile          `mapstructure:"http"`
	TLS           *TLSConfigFile           `mapstructure:"tls"`
	CORS          *CORSConfigFile          `mapstructure:"cors"`
	CacheControl  *CacheControlConfigFile  `mapstructure:"cache-control"`
	AccessControl *AccessControlConfigFile `mapstructure:"access-control"`
	IPFilter      *IPFilterConfigFile      `mapstructure:"ip-filter"`
	ContentTypes  *ContentTypesConfigFile  `mapstructure:"content-types"`
	RateLimiting  *RateLimitingConfigFile  `mapstructure:"rate-limiting"`
}

type HTTPConfigFile struct {
	Host *string `mapstructure:"host"`
	Port *int    `mapstructure:"port"`
}

// TLSConfigFile carries raw TLS input. Cert/Key are inline PEM strings,
// CertFile/KeyFile are paths; validation enforces exactly one pair.
type TLSConfigFile struct {
	Versions []string `mapstructure:"versions"`
	Cert     *string  `mapstructure:"cert"`
	Key      *string  `mapstructure:"key"`
	CertFile *string  `mapstructure:"cert-file"`
	KeyFile  *string  `mapstructure:"key-file"`
}

type CORSConfigFile struct {
	AllowedOrigins   []string `mapstructure:"allowed-origins"`
	AllowedMethods   []string `mapstructure:"allowed-methods"`
	AllowedHeaders   []string `mapstructure:"allowed-headers"`
	AllowCredentials *bool    `mapstructure:"allow-credentials"`
}

type CacheControlConfigFile struct {
	DefaultPolicy *string `mapstructure:"default-policy"`
	DefaultMaxAge *int    `mapstructure:"default-max-age"`
}

type AccessControlConfigFile struct {
	TokensEnabled  *bool    `mapstructure:"tokens-enabled"`
	LoopbackBypass *bool    `mapstructure:"loopback-bypass"`
	Tokens         []string `mapstructure:"tokens"`
}

type IPFilterConfigFile struct {
	Allow []string `mapstructure:"allow"`
	Deny  []string `mapstructure:"deny"`
}

type ContentTypesConfigFile struct {
	Allow []string `mapstructure:"allow"`
	Deny  []string `mapstructure:"deny"`
}

type RateLimitingConfigFile struct {
	DefaultPeriod    *string `mapstructure:"default-period"`
	DefaultBurstSize *int    `mapstructure:"default-burst-size"`
}

// LoadConfigFile reads and decodes a TOML configuration file. A missing
// path returns an empty ConfigFile so that a config-less start runs on
// pure defaults.
func LoadConfigFile(path string) (*ConfigFile, error) {
	cf := &ConfigFile{}
	if path == "" {
		return cf, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := v.Unmarshal(cf); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cf, nil
}
