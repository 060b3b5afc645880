// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

// Package env reports which deployment environment the process runs
// in. The value comes from the ENV configuration key and defaults to
// local.
package env

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	Local      = "local"
	Production = "production"
)

var current string

func init() {
	current = strings.ToLower(viper.GetString("ENV"))
	if current == "" {
		current = Local
	}
}

// Name returns the configured environment.
func Name() string {
	return current
}

func IsLocal() bool {
	return current == Local
}

func IsProduction() bool {
	return current == Production
}
