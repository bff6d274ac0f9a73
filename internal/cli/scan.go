package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agenthands/cardscan/internal/core/contacts"
	"github.com/agenthands/cardscan/internal/core/dedupe"
	"github.com/agenthands/cardscan/internal/core/export"
	"github.com/agenthands/cardscan/internal/core/extract"
	"github.com/agenthands/cardscan/internal/core/normalize"
	"github.com/agenthands/cardscan/internal/llm"
)

var (
	outCSV      string
	provider    string
	modelName   string
	apiKey      string
	scanTimeout time.Duration
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <image files...>",
	Short: "Extract contacts from business card images and write CSV",
	Long: `Scan reads one or more card images from disk, normalizes them for
upload, extracts contact fields through the configured model, and writes
the contacts as CSV.

Example:
  cardscan scan card1.jpg card2.png --out contacts.csv
  cardscan scan *.jpg --provider openai --model gpt-4o`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&outCSV, "out", "contacts.csv", "output CSV path")
	scanCmd.Flags().StringVar(&provider, "provider", "", "LLM provider (gemini, openai, claude, ollama)")
	scanCmd.Flags().StringVar(&modelName, "model", "", "model name (provider-specific)")
	scanCmd.Flags().StringVar(&apiKey, "api-key", "", "API credential (overrides config and env)")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 2*time.Minute, "overall extraction timeout")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if provider != "" {
		cfg.LLM.Provider = provider
	}
	if modelName != "" {
		cfg.LLM.Model = modelName
	}
	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}

	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	client, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("configure a credential via --api-key, LLM_API_KEY or config: %w", err)
	}

	raws := make([][]byte, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		raws = append(raws, data)
	}

	normalizer := normalize.New(cfg.Image.MaxWidth, cfg.Image.Quality)
	payloads, err := normalizer.NormalizeAll(ctx, raws)
	if err != nil {
		return err
	}
	if verbose {
		for i, p := range payloads {
			fmt.Fprintf(os.Stderr, "normalized %s -> %d bytes (%s)\n", args[i], len(p.Data), p.MIMEType)
		}
	}

	extractor := extract.New(client)
	fields, err := extractor.Extract(ctx, payloads)
	if err != nil {
		return err
	}

	collection := contacts.NewCollection()
	created := collection.Ingest(fields)

	if err := os.WriteFile(outCSV, export.ToCSV(created), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outCSV, err)
	}

	fmt.Printf("Extracted %d contact(s) from %d image(s) -> %s\n", len(created), len(args), outCSV)
	if pairs := dedupe.Find(created); len(pairs) > 0 {
		fmt.Printf("Note: %d likely duplicate(s) detected; nothing was merged\n", len(pairs))
	}
	return nil
}
