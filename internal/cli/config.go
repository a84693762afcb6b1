package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default name of the config file
const DefaultConfigFile = "config.yaml"

// Store backends for the persisted session.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Environment variables that override the config file.
const (
	EnvServerURL = "PUBSYNC_SERVER_URL"
	EnvLogLevel  = "PUBSYNC_LOG_LEVEL"
)

// Config represents the configuration for the pubsync CLI
type Config struct {
	// Version of the configuration file format
	Version string `yaml:"version"`
	// ServerURL is the base URL of the content API
	ServerURL string `yaml:"server_url"`
	// Store selects where the session is persisted: "file" or "sqlite"
	Store string `yaml:"store"`
	// StorePath is the session file or database; defaults next to the config file
	StorePath string `yaml:"store_path,omitempty"`
	// PageSize is the server's page size for feeds and search
	PageSize int `yaml:"page_size"`
	// Debounce is the quiet period before a search query is sent
	Debounce time.Duration `yaml:"debounce"`
	// RequestTimeout bounds every HTTP request
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// RateLimit is the maximum number of requests per second, 0 for unlimited
	RateLimit float64 `yaml:"rate_limit"`
	// RetryAttempts is the number of attempts for idempotent reads
	RetryAttempts uint `yaml:"retry_attempts"`
	// LogLevel is a zerolog level name
	LogLevel string `yaml:"log_level"`
}

var config *Config

// GetDefaultConfigPath returns the default path for the config file
// It uses the OS-specific config directory (e.g., ~/.config/pubsync on Linux)
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "pubsync", DefaultConfigFile), nil
}

// NewConfig returns a configuration with defaults for server.
func NewConfig(server string) *Config {
	cfg := &Config{Version: "0.1.0", ServerURL: MorphServer(server)}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads the configuration from the specified file, then applies a .env
// file from the working directory and environment overrides.
func LoadConfig(file string) error {
	if file == "" {
		var err error
		file, err = GetDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get default config path: %w", err)
		}
	}

	yamlStr, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("unable to read config file: %w", err)
	}

	var c Config
	if err = yaml.Unmarshal(yamlStr, &c); err != nil {
		return fmt.Errorf("unable to parse config file: %w", err)
	}

	if cwd, err := os.Getwd(); err == nil {
		_ = godotenv.Load(filepath.Join(cwd, ".env")) // no error if .env doesn't exist
	}
	c.applyEnv()
	c.applyDefaults()
	if c.StorePath == "" {
		c.StorePath = defaultStorePath(file, c.Store)
	}

	if err := c.ValidateConfig(); err != nil {
		return err
	}
	c.ServerURL = MorphServer(c.ServerURL)

	config = &c
	return nil
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	return config
}

func (cfg *Config) applyEnv() {
	if v := os.Getenv(EnvServerURL); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.Store == "" {
		cfg.Store = StoreFile
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 2
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
}

func defaultStorePath(configPath, store string) string {
	name := "session.yaml"
	if store == StoreSQLite {
		name = "session.db"
	}
	return filepath.Join(filepath.Dir(configPath), name)
}

// WriteConfig writes the current configuration to the specified file
func (cfg *Config) WriteConfig(file string) error {
	if file == "" {
		return errors.New("file path cannot be empty")
	}

	err := os.MkdirAll(filepath.Dir(file), 0700)
	if err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}

	yamlStr, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("unable to generate configuration: %w", err)
	}

	err = os.WriteFile(file, yamlStr, os.FileMode(0600))
	if err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}

	return nil
}

// ValidateConfig validates the configuration
func (cfg *Config) ValidateConfig() error {
	if cfg.ServerURL == "" {
		return errors.New("server_url is required")
	}
	if cfg.Store != StoreFile && cfg.Store != StoreSQLite {
		return fmt.Errorf("store must be %q or %q", StoreFile, StoreSQLite)
	}
	if cfg.RateLimit < 0 {
		return errors.New("rate_limit cannot be negative")
	}
	return nil
}

// MorphServer ensures the server URL is properly formatted
// Adds https:// prefix if missing and removes trailing slashes
func MorphServer(server string) string {
	if server == "" {
		return server
	}

	server = strings.TrimRight(server, "/")

	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "https://" + server
	}

	return server
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration settings like the server and session storage.

Examples:
  # Point the CLI at a server
  pubsync config --server api.example.com

  # Keep the session in SQLite instead of a YAML file
  pubsync config --server api.example.com --store sqlite`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serverFlag, _ := cmd.Flags().GetString("server")
		if serverFlag != "" {
			storeFlag, _ := cmd.Flags().GetString("store")
			return setServerConfig(serverFlag, storeFlag)
		}

		cmd.Help()
		return nil
	},
}

// configShowCmd prints the effective configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := LoadConfig(configFile); err != nil {
			return err
		}
		cfg := GetConfig()
		if jsonOutput {
			printJSON(cfg)
			return nil
		}
		cfg.Print()
		return nil
	},
}

func init() {
	configCmd.Flags().String("server", "", "Set the server URL (e.g., api.example.com)")
	configCmd.Flags().String("store", StoreFile, "Session store: file or sqlite")

	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

// Print prints the configuration in a human-readable format
func (cfg *Config) Print() {
	fmt.Printf("Server:          %s\n", cfg.ServerURL)
	fmt.Printf("Session store:   %s (%s)\n", cfg.Store, cfg.StorePath)
	fmt.Printf("Page size:       %d\n", cfg.PageSize)
	fmt.Printf("Search debounce: %s\n", cfg.Debounce)
	fmt.Printf("Request timeout: %s\n", cfg.RequestTimeout)
	fmt.Printf("Log level:       %s\n", cfg.LogLevel)
}

// setServerConfig writes a fresh configuration for server
func setServerConfig(server, store string) error {
	configPath := configFile
	if configPath == "" {
		var err error
		configPath, err = GetDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get default config path: %w", err)
		}
	}

	cfg := NewConfig(server)
	cfg.Store = store
	if err := cfg.ValidateConfig(); err != nil {
		return err
	}

	if err := cfg.WriteConfig(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if jsonOutput {
		printJSON(map[string]string{
			"server":      cfg.ServerURL,
			"store":       cfg.Store,
			"config_file": configPath,
		})
	} else {
		fmt.Printf("Server configured: %s\n", cfg.ServerURL)
		fmt.Printf("Config file: %s\n", configPath)
	}

	return nil
}
