// ABOUTME: Configuration loading and parsing for sibyl.
// ABOUTME: YAML files with environment variable expansion and duration parsing.

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDeadline bounds one turn's RPC when the config omits it.
// Matches the assistant service's long-form response ceiling.
const DefaultDeadline = 3*time.Minute + 5*time.Second

// Config represents the complete sibyl configuration.
type Config struct {
	Assistant AssistantConfig `yaml:"assistant"`
	Frontends FrontendsConfig `yaml:"frontends"`
	Policy    PolicyConfig    `yaml:"policy"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Store     StoreConfig     `yaml:"store"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AssistantConfig holds the assistant session configuration.
type AssistantConfig struct {
	Endpoint        string `yaml:"endpoint"`
	CredentialsPath string `yaml:"credentials_path"`
	LanguageCode    string `yaml:"language_code"`
	DeviceModelID   string `yaml:"device_model_id"`
	DeviceID        string `yaml:"device_id"`

	Deadline time.Duration `yaml:"-"`
	// Raw string value for YAML unmarshaling
	DeadlineRaw string `yaml:"deadline"`
}

// FrontendsConfig holds configuration for all chat frontends.
type FrontendsConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Matrix   MatrixConfig   `yaml:"matrix"`
}

// TelegramConfig holds Telegram frontend configuration.
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
}

// MatrixConfig holds Matrix frontend configuration.
type MatrixConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Homeserver  string `yaml:"homeserver"`
	UserID      string `yaml:"user_id"`
	AccessToken string `yaml:"access_token"`
}

// PolicyConfig holds the authorization allow-lists.
type PolicyConfig struct {
	AllowedChatIDs    []string `yaml:"allowed_chat_ids"`
	AuthorizedUserIDs []string `yaml:"authorized_user_ids"`
}

// BridgeConfig holds router behavior settings.
type BridgeConfig struct {
	// ReportFailures posts an "assistant unavailable" reply on turn
	// failure instead of staying silent.
	ReportFailures bool `yaml:"report_failures"`
}

// StoreConfig holds transcript store configuration. An empty path
// disables recording.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a
// parsed Config. Environment variables in the format ${VAR_NAME} are
// expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills optional fields that were left empty.
func (c *Config) applyDefaults() {
	if c.Assistant.LanguageCode == "" {
		c.Assistant.LanguageCode = "en-US"
	}
	if c.Assistant.Deadline == 0 {
		c.Assistant.Deadline = DefaultDeadline
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Assistant.CredentialsPath == "" {
		return fmt.Errorf("assistant.credentials_path is required")
	}
	if c.Assistant.DeviceModelID == "" {
		return fmt.Errorf("assistant.device_model_id is required")
	}
	if c.Assistant.DeviceID == "" {
		return fmt.Errorf("assistant.device_id is required")
	}

	if !c.Frontends.Telegram.Enabled && !c.Frontends.Matrix.Enabled {
		return fmt.Errorf("at least one frontend must be enabled")
	}
	if c.Frontends.Telegram.Enabled && c.Frontends.Telegram.BotToken == "" {
		return fmt.Errorf("frontends.telegram.bot_token is required when telegram is enabled")
	}
	if c.Frontends.Matrix.Enabled {
		if c.Frontends.Matrix.Homeserver == "" {
			return fmt.Errorf("frontends.matrix.homeserver is required when matrix is enabled")
		}
		if c.Frontends.Matrix.UserID == "" {
			return fmt.Errorf("frontends.matrix.user_id is required when matrix is enabled")
		}
		if c.Frontends.Matrix.AccessToken == "" {
			return fmt.Errorf("frontends.matrix.access_token is required when matrix is enabled")
		}
	}

	return nil
}

// parseDurations converts raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	if cfg.Assistant.DeadlineRaw != "" {
		d, err := time.ParseDuration(cfg.Assistant.DeadlineRaw)
		if err != nil {
			return fmt.Errorf("parsing assistant.deadline %q: %w", cfg.Assistant.DeadlineRaw, err)
		}
		cfg.Assistant.Deadline = d
	}
	return nil
}
