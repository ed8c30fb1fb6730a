package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	RedisAddr  string `mapstructure:"REDIS_ADDR"`

	AirtableAPIKey string `mapstructure:"AIRTABLE_API_KEY"`
	AirtableBaseID string `mapstructure:"AIRTABLE_BASE_ID"`
	AirtableTable  string `mapstructure:"AIRTABLE_TABLE_NAME"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	AlertFrom    string `mapstructure:"ALERT_FROM"`
	AlertTo      string `mapstructure:"ALERT_TO"`

	DedupeTTLHours int `mapstructure:"DEDUPE_TTL_HOURS"`
	HTTPTimeout    int `mapstructure:"HTTP_TIMEOUT_SECONDS"`
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	_ = viper.ReadInConfig()

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("AIRTABLE_API_KEY", "")
	viper.SetDefault("AIRTABLE_BASE_ID", "")
	viper.SetDefault("AIRTABLE_TABLE_NAME", "Payment Failures")
	viper.SetDefault("SMTP_HOST", "smtp.gmail.com")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_USER", "")
	viper.SetDefault("SMTP_PASSWORD", "")
	viper.SetDefault("ALERT_FROM", "")
	viper.SetDefault("ALERT_TO", "")
	viper.SetDefault("DEDUPE_TTL_HOURS", 24)
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 10)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DedupeTTL is how long a payment id stays marked as delivered.
func (c *Config) DedupeTTL() time.Duration {
	return time.Duration(c.DedupeTTLHours) * time.Hour
}

// HTTPClientTimeout bounds outbound calls to the tabular store.
func (c *Config) HTTPClientTimeout() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}
