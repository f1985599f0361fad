// Package main provides the entry point for the BookForge CLI and API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "book_agent",
	Short: "BookForge illustrated book generator",
	Long:  "BookForge generates complete illustrated children's books from a story idea: characters, plan, per-page text and images, assembled into a single HTML document.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
