package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the xtrn-google-mcp application
var rootCmd = &cobra.Command{
	Use:   "xtrn-google-mcp",
	Short: "MCP server exposing Gmail and Google Calendar tools",
	Long: `xtrn-google-mcp serves Gmail or Google Calendar as a set of
Model Context Protocol tools for AI assistants.

One process serves one backend:
  - gmail: list, search, send and label email, batch operations, attachments
  - calendar: list, create, update and delete events on the primary calendar`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "xtrn-google-mcp version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCheckAuthCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
