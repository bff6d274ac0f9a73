package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

type ImageConfig struct {
	// MaxWidth bounds the upload payload; images narrower than this are
	// never upscaled.
	MaxWidth int `toml:"max_width"`
	// Quality is the JPEG re-encode quality (1-100).
	Quality int `toml:"quality"`
}

type OutreachConfig struct {
	Subject string `toml:"subject"`
	Body    string `toml:"body"`
}

type Config struct {
	LLM      LLMConfig      `toml:"llm"`
	Image    ImageConfig    `toml:"image"`
	Outreach OutreachConfig `toml:"outreach"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.5-flash",
		},
		Image: ImageConfig{
			MaxWidth: 1600,
			Quality:  80,
		},
		Outreach: OutreachConfig{
			Subject: "Great meeting you!",
			Body:    "Hi {name},\n\nIt was a pleasure meeting you recently. I'd love to stay in touch and discuss how we might collaborate.\n\nBest regards,\n[My Name]",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides config values with environment variables where set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("API_KEY"); v != "" && c.LLM.APIKey == "" {
		// The hosted build exposes the Gemini credential as API_KEY.
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("MAX_IMAGE_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Image.MaxWidth = n
		}
	}
	if v := os.Getenv("JPEG_QUALITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			c.Image.Quality = n
		}
	}
}
