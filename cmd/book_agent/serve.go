package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/bookforge/internal/llm"
	"github.com/jonathan/bookforge/internal/pipeline"
	"github.com/jonathan/bookforge/internal/server"
	"github.com/jonathan/bookforge/internal/store"
)

var (
	servePort       int
	serveConfigPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for submitting and polling book generation runs.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadMergedConfig(cmd, serveConfigPath)
	if err != nil {
		return err
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	client, err := llm.NewClient(ctx, nil, cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	st, err := store.New(cfg.OutputDir)
	if err != nil {
		return err
	}

	database := connectRegistry(ctx, cfg.DatabaseURL)

	orch, err := pipeline.NewOrchestrator(pipeline.Options{
		Config:   &cfg,
		Store:    st,
		Client:   client,
		Database: database,
	})
	if err != nil {
		return err
	}

	srvCfg := server.Config{Port: servePort}
	if database != nil {
		srvCfg.Registry = database
	}

	srv, err := server.New(srvCfg, orch)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
