// mcp-secrets — permission-gated credential manager for MCP servers.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mcp-secrets",
	Short: "mcp-secrets — permission-gated credential storage for MCP servers.",
	Long: `mcp-secrets stores named secrets for one application in the platform
credential vault and releases them only after an explicit user grant.
Missing secrets are collected through a secure out-of-process dialog,
verified against the MCP session with a one-time code.`,
	RunE:          runServe, // Default to serving.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, versionCmd)
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
