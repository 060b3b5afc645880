// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "objection",
	Short: "Objection - self-hosted object storage",
	Long: `Objection is a self-hosted object storage server with deduplicating,
content-addressed blob storage and per-bucket cache policies.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
