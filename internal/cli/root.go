package cli

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/agenthands/cardscan/internal/config"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cardscan",
	Short: "cardscan - turn photographed business cards into structured contacts",
	Long: `cardscan sends business card images to a multimodal model, extracts
structured contact fields (name, title, company, email, phone, website,
address, linkedin, notes), and writes the result as CSV.

Extraction accuracy is delegated entirely to the model; review the output.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("cardscan v0.1.0")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the config file, env overrides included.
func loadConfig() *config.Config {
	if err := godotenv.Load(); err == nil && verbose {
		log.Println("Loaded .env")
	}

	path := cfgFile
	if path == "" {
		path = "config/config.toml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		if verbose {
			log.Printf("No config file at %s, using defaults", path)
		}
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	return cfg
}
