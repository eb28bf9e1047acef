// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of contract-review",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("contract-review %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
