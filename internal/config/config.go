package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Configuration holds the scraper settings.
//
// Environment variables (read after an optional .env file):
//   - COKAC_LOGIN_URL, COKAC_BASE_URL
//   - STORAGE_STATE_PATH, OUTPUT_PATH
//   - HEADLESS (true|false)
//   - TIMEOUT, SCROLL_DELAY (milliseconds)
//   - USER_AGENT, LOG_LEVEL
type Configuration struct {
	LoginURL         string
	BaseURL          string
	StorageStatePath string
	OutputPath       string
	LogLevel         string

	Headless       bool
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int

	Timeout        time.Duration
	NetworkTimeout time.Duration
	PostLoadWait   time.Duration
	SettleWait     time.Duration

	TranscriptSelector  string
	TranscriptContainer string
	TimestampSelector   string
	PlayerContainer     string

	MaxScrollAttempts int
	ScrollStep        int
	ScrollDelay       time.Duration
	IdleThreshold     int

	PrimaryRatio float64
	NoiseFloor   int

	LoginExtendedWait time.Duration
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Configuration {
	return Configuration{
		LoginURL:         "https://cokac.com/member",
		BaseURL:          "https://cokac.com",
		StorageStatePath: "data/cokac_storage.json",
		OutputPath:       "data/transcripts",
		LogLevel:         "info",

		Headless:       true,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,

		Timeout:        30 * time.Second,
		NetworkTimeout: 5 * time.Second,
		PostLoadWait:   3 * time.Second,
		SettleWait:     2 * time.Second,

		TranscriptSelector:  `span[class*="TranscriptCue_lazy_module_cueText"]`,
		TranscriptContainer: `div[class*="transcript"], div[class*="TranscriptCue"], [class*="transcript-container"]`,
		TimestampSelector:   `span[class*="time"], span[class*="timestamp"], [class*="cue-time"]`,
		PlayerContainer:     `[class*="video-player"]`,

		MaxScrollAttempts: 50,
		ScrollStep:        800,
		ScrollDelay:       500 * time.Millisecond,
		IdleThreshold:     5,

		PrimaryRatio: 1.1,
		NoiseFloor:   5,

		LoginExtendedWait: 30 * time.Second,
	}
}

// Load returns Defaults overridden by the environment. A missing .env file is not an error.
func Load(envFiles ...string) (*Configuration, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	cfg := Defaults()
	cfg.LoginURL = envString("COKAC_LOGIN_URL", cfg.LoginURL)
	cfg.BaseURL = envString("COKAC_BASE_URL", cfg.BaseURL)
	cfg.StorageStatePath = envString("STORAGE_STATE_PATH", cfg.StorageStatePath)
	cfg.OutputPath = envString("OUTPUT_PATH", cfg.OutputPath)
	cfg.UserAgent = envString("USER_AGENT", cfg.UserAgent)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)

	if v, ok := os.LookupEnv("HEADLESS"); ok {
		cfg.Headless = strings.EqualFold(strings.TrimSpace(v), "true")
	}

	var err error
	if cfg.Timeout, err = envMillis("TIMEOUT", cfg.Timeout); err != nil {
		return nil, err
	}
	if cfg.ScrollDelay, err = envMillis("SCROLL_DELAY", cfg.ScrollDelay); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Configuration) Validate() error {
	var problems []string

	if !strings.HasPrefix(c.LoginURL, "http") {
		problems = append(problems, "LOGIN_URL must start with http or https")
	}
	if !strings.HasPrefix(c.BaseURL, "http") {
		problems = append(problems, "BASE_URL must start with http or https")
	}
	if c.Timeout < time.Second {
		problems = append(problems, "TIMEOUT must be at least 1000ms")
	}
	if c.ScrollDelay < 100*time.Millisecond {
		problems = append(problems, "SCROLL_DELAY must be at least 100ms")
	}
	if c.MaxScrollAttempts < 1 {
		problems = append(problems, "max scroll attempts must be positive")
	}
	if c.IdleThreshold < 1 {
		problems = append(problems, "idle threshold must be positive")
	}
	if c.PrimaryRatio < 1 {
		problems = append(problems, "primary ratio must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(problems, ", "))
	}
	return nil
}

// Snapshot is the subset of settings recorded next to every result.
func (c *Configuration) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"headless":            c.Headless,
		"timeout":             c.Timeout.Milliseconds(),
		"scroll_delay":        c.ScrollDelay.Milliseconds(),
		"max_scroll_attempts": c.MaxScrollAttempts,
		"idle_threshold":      c.IdleThreshold,
		"primary_ratio":       c.PrimaryRatio,
	}
}

// LogConfig prints the effective settings at debug level.
func (c *Configuration) LogConfig() {
	log.Debug("configuration",
		"login_url", c.LoginURL,
		"base_url", c.BaseURL,
		"storage_state", c.StorageStatePath,
		"output", c.OutputPath,
		"headless", c.Headless,
		"timeout", c.Timeout,
		"scroll_delay", c.ScrollDelay,
	)
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envMillis(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
