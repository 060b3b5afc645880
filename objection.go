// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/objectionfs/objection/cmd"
)

func main() {
	cmd.Execute()
}
