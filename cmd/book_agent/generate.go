package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/bookforge/internal/config"
	"github.com/jonathan/bookforge/internal/db"
	"github.com/jonathan/bookforge/internal/llm"
	"github.com/jonathan/bookforge/internal/pipeline"
	"github.com/jonathan/bookforge/internal/store"
	"github.com/jonathan/bookforge/internal/types"
)

var generateCommand = &cobra.Command{
	Use:   "generate",
	Short: "Generate a complete illustrated book end-to-end",
	Long: `Runs the full generation pipeline: character extraction -> planning -> per-page text -> images -> assembly, with optional trend research, style analysis and translation.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runGenerateCmd,
}

var (
	genConfigPath  string
	genRequestPath string
	genIdea        string
	genTitle       string
	genAgeGroup    string
	genLanguage    string
	genPages       int
	genArtStyle    string
	genCharacters  []string
	genThemes      []string
	genTrendTopic  string
	genStylePath   string
	genTranslateTo string
	genOutDir      string
	genWorkers     int
	genAPIKey      string
	genDatabaseURL string
	genUseBrowser  bool
	genVerbose     bool
)

func init() {
	// Config file flag (processed first)
	generateCommand.Flags().StringVar(&genConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	generateCommand.Flags().StringVar(&genRequestPath, "request", "", "Path to a JSON request file (mutually exclusive with the story flags)")
	generateCommand.Flags().StringVarP(&genIdea, "idea", "i", "", "Story idea, one or two sentences")
	generateCommand.Flags().StringVar(&genTitle, "title", "", "Book title (optional, planned if omitted)")
	generateCommand.Flags().StringVar(&genAgeGroup, "age-group", "3-6", "Target age group (0-2, 3-6, 4-7, 6-8, 9-12)")
	generateCommand.Flags().StringVar(&genLanguage, "language", "English", "Language the book is written in")
	generateCommand.Flags().IntVarP(&genPages, "pages", "p", 8, "Number of story pages")
	generateCommand.Flags().StringVar(&genArtStyle, "art-style", "", "Art style for the illustrations")
	generateCommand.Flags().StringArrayVarP(&genCharacters, "character", "c", nil, `Character as "name:role:description" (repeatable, role one of main/secondary/background)`)
	generateCommand.Flags().StringArrayVar(&genThemes, "theme", nil, "Theme to weave into the story (repeatable)")
	generateCommand.Flags().StringVar(&genTrendTopic, "trend-topic", "", "Enable trend research around this topic")
	generateCommand.Flags().StringVar(&genStylePath, "style-example", "", "Path to example text whose writing style should be imitated")
	generateCommand.Flags().StringVar(&genTranslateTo, "translate-to", "", "Also translate the finished text into this language")
	generateCommand.Flags().StringVarP(&genOutDir, "out", "o", "", "Root directory for run artifacts")
	generateCommand.Flags().IntVar(&genWorkers, "workers", 0, "Concurrent image generation calls")
	generateCommand.Flags().BoolVar(&genUseBrowser, "use-browser", false, "Use headless browser for SPA trend sources (requires Chrome)")
	generateCommand.Flags().BoolVarP(&genVerbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	generateCommand.Flags().StringVar(&genAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for the optional run registry
	generateCommand.Flags().StringVar(&genDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(generateCommand)
}

func runGenerateCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadMergedConfig(cmd, genConfigPath)
	if err != nil {
		return err
	}

	req, err := buildRequest(cmd)
	if err != nil {
		return err
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}

	client, err := llm.NewClient(ctx, nil, cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer client.Close()

	st, err := store.New(cfg.OutputDir)
	if err != nil {
		return err
	}

	database := connectRegistry(ctx, cfg.DatabaseURL)
	if database != nil {
		defer database.Close()
	}

	orch, err := pipeline.NewOrchestrator(pipeline.Options{
		Config:   &cfg,
		Store:    st,
		Client:   client,
		Database: database,
		OnProgress: func(event pipeline.ProgressEvent) {
			fmt.Printf("  [%s] %s\n", event.Stage, event.Message)
		},
	})
	if err != nil {
		return err
	}

	run, err := orch.Submit(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s started (%d stages)\n", run.ID(), len(run.Snapshot().Stages))
	if err := orch.Execute(ctx, run); err != nil {
		return err
	}

	docPath, err := orch.Result(run.ID())
	if err != nil {
		return err
	}
	fmt.Printf("Book written to %s\n", docPath)
	return nil
}

// loadMergedConfig loads the optional config file, applies explicitly set
// CLI flags over it and fills the rest from defaults.
func loadMergedConfig(cmd *cobra.Command, path string) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return cfg, err
		}
		cfg = *loaded
		if genVerbose {
			fmt.Printf("Loaded config from: %s\n", path)
		}
	}

	// Command-line args take priority, but only when explicitly set.
	if cmd.Flags().Changed("out") {
		cfg.OutputDir = genOutDir
	}
	if cmd.Flags().Changed("workers") {
		cfg.ImageWorkers = genWorkers
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = genAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = genDatabaseURL
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = genUseBrowser
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = genVerbose
	}

	cfg = cfg.MergeWithDefaults(config.Defaults())
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	return cfg, nil
}

// buildRequest assembles the generation request from a request file or
// from the individual story flags.
func buildRequest(cmd *cobra.Command) (*types.GenerateRequest, error) {
	if genRequestPath != "" {
		if cmd.Flags().Changed("idea") || len(genCharacters) > 0 {
			return nil, fmt.Errorf("--request and the story flags are mutually exclusive; provide only one")
		}
		data, err := os.ReadFile(genRequestPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read request file: %w", err)
		}
		var req types.GenerateRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("failed to parse request file: %w", err)
		}
		return &req, nil
	}

	if genIdea == "" {
		return nil, fmt.Errorf("either --idea or --request must be provided")
	}
	if len(genCharacters) == 0 {
		return nil, fmt.Errorf("at least one --character is required")
	}

	specs := make([]types.CharacterSpec, 0, len(genCharacters))
	for _, raw := range genCharacters {
		spec, err := parseCharacterSpec(raw)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	req := &types.GenerateRequest{
		StoryIdea:  genIdea,
		Title:      genTitle,
		AgeGroup:   genAgeGroup,
		Language:   genLanguage,
		Pages:      genPages,
		ArtStyle:   genArtStyle,
		Characters: specs,
		Themes:     genThemes,
	}

	if genTrendTopic != "" {
		req.Features.TrendResearch = true
		req.Features.TrendTopic = genTrendTopic
	}
	if genStylePath != "" {
		example, err := os.ReadFile(genStylePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read style example: %w", err)
		}
		req.Features.StyleImitation = true
		req.Features.StyleExample = string(example)
	}
	if genTranslateTo != "" {
		req.Features.Translation = true
		req.Features.TargetLanguage = genTranslateTo
	}
	return req, nil
}

// parseCharacterSpec parses "name:role:description". Role may be omitted
// ("name::description" or "name:description" is rejected, the role slot
// must be present even if empty).
func parseCharacterSpec(raw string) (types.CharacterSpec, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 {
		return types.CharacterSpec{}, fmt.Errorf("invalid character %q: expected \"name:role:description\"", raw)
	}
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return types.CharacterSpec{}, fmt.Errorf("invalid character %q: name is required", raw)
	}
	desc := strings.TrimSpace(parts[2])
	if desc == "" {
		return types.CharacterSpec{}, fmt.Errorf("invalid character %q: description is required", raw)
	}

	role := types.CharacterRole(strings.TrimSpace(parts[1]))
	if role == "" {
		role = types.RoleMain
	}
	role = types.NormalizeRole(role)

	return types.CharacterSpec{
		Name:        name,
		Role:        role,
		Source:      types.SourceText,
		Description: desc,
	}, nil
}

// connectRegistry connects to the optional PostgreSQL run registry. A
// connection failure is a warning, not an error.
func connectRegistry(ctx context.Context, databaseURL string) *db.DB {
	if databaseURL == "" {
		return nil
	}
	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: run registry unavailable: %v\n", err)
		return nil
	}
	if err := database.EnsureSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to ensure registry schema: %v\n", err)
		database.Close()
		return nil
	}
	return database
}
