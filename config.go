package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	SlackBotToken string `yaml:"slack_bot_token"`
	SlackChannel  string `yaml:"slack_channel"`

	InsightsWorkspaceID string `yaml:"insights_workspace_id"`
	InsightsAccessToken string `yaml:"insights_access_token"`

	RedshiftHost     string `yaml:"redshift_host"`
	RedshiftPort     int    `yaml:"redshift_port"`
	RedshiftDatabase string `yaml:"redshift_database"`
	RedshiftUser     string `yaml:"redshift_user"`
	RedshiftPassword string `yaml:"redshift_password"`

	MySQLHost     string `yaml:"mysql_host"`
	MySQLPort     int    `yaml:"mysql_port"`
	MySQLDatabase string `yaml:"mysql_database"`
	MySQLUser     string `yaml:"mysql_user"`
	MySQLPassword string `yaml:"mysql_password"`

	LLMEnabled      bool   `yaml:"llm_enabled"`
	LLMModel        string `yaml:"llm_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	ReportTitle  string `yaml:"report_title"`
	DBPath       string `yaml:"db_path"`
	ScheduleSpec string `yaml:"schedule"`

	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds"`
	DBTimeoutSeconds   int `yaml:"db_timeout_seconds"`
}

func LoadConfig() Config {
	var cfg Config

	// .env is optional; real env always wins.
	_ = godotenv.Load()

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannel, "SLACK_CHANNEL")
	envOverride(&cfg.InsightsWorkspaceID, "AZURE_APP_INSIGHTS_WORKSPACE_ID")
	envOverride(&cfg.InsightsAccessToken, "AZURE_ACCESS_TOKEN")
	envOverride(&cfg.RedshiftHost, "REDSHIFT_HOST")
	envOverrideInt(&cfg.RedshiftPort, "REDSHIFT_PORT")
	envOverride(&cfg.RedshiftDatabase, "REDSHIFT_DATABASE")
	envOverride(&cfg.RedshiftUser, "REDSHIFT_USER")
	envOverride(&cfg.RedshiftPassword, "REDSHIFT_PASSWORD")
	envOverride(&cfg.MySQLHost, "MYSQL_HOST")
	envOverrideInt(&cfg.MySQLPort, "MYSQL_PORT")
	envOverride(&cfg.MySQLDatabase, "MYSQL_DATABASE")
	envOverride(&cfg.MySQLUser, "MYSQL_USER")
	envOverride(&cfg.MySQLPassword, "MYSQL_PASSWORD")
	envOverrideBool(&cfg.LLMEnabled, "LLM_ENABLED")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.ReportTitle, "REPORT_TITLE")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.ScheduleSpec, "SCHEDULE")
	envOverrideInt(&cfg.HTTPTimeoutSeconds, "HTTP_TIMEOUT_SECONDS")
	envOverrideInt(&cfg.DBTimeoutSeconds, "DB_TIMEOUT_SECONDS")

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.RedshiftPort == 0 {
		cfg.RedshiftPort = 5439
	}
	if cfg.MySQLPort == 0 {
		cfg.MySQLPort = 3306
	}
	if cfg.ReportTitle == "" {
		cfg.ReportTitle = "Service Health Status"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./insightsbot.db"
	}
	if cfg.ScheduleSpec == "" {
		cfg.ScheduleSpec = "0 8 * * *"
	}
	if cfg.HTTPTimeoutSeconds == 0 {
		cfg.HTTPTimeoutSeconds = 30
	}
	if cfg.DBTimeoutSeconds == 0 {
		cfg.DBTimeoutSeconds = 10
	}
}

// Validate checks required settings before any network call is attempted.
func (c Config) Validate() error {
	required := map[string]string{
		"slack_bot_token":       c.SlackBotToken,
		"slack_channel":         c.SlackChannel,
		"insights_workspace_id": c.InsightsWorkspaceID,
		"insights_access_token": c.InsightsAccessToken,
	}
	for name, val := range required {
		if val == "" {
			return fmt.Errorf("required config '%s' is not set (via config.yaml or env var)", name)
		}
	}

	if c.RedshiftConfigured() {
		if c.RedshiftHost == "" || c.RedshiftDatabase == "" || c.RedshiftUser == "" || c.RedshiftPassword == "" {
			return fmt.Errorf("redshift config is incomplete: host, database, user and password are all required")
		}
	}
	if c.MySQLConfigured() {
		if c.MySQLHost == "" || c.MySQLDatabase == "" || c.MySQLUser == "" || c.MySQLPassword == "" {
			return fmt.Errorf("mysql config is incomplete: host, database, user and password are all required")
		}
	}

	if c.LLMEnabled && c.AnthropicAPIKey == "" {
		return fmt.Errorf("anthropic_api_key is required when llm_enabled=true")
	}

	if c.HTTPTimeoutSeconds < 1 {
		return fmt.Errorf("invalid http_timeout_seconds '%d': must be >= 1", c.HTTPTimeoutSeconds)
	}
	if c.DBTimeoutSeconds < 1 {
		return fmt.Errorf("invalid db_timeout_seconds '%d': must be >= 1", c.DBTimeoutSeconds)
	}
	return nil
}

// RedshiftConfigured reports whether any Redshift setting is present. A
// wholly-absent source is skipped; a partial one fails validation.
func (c Config) RedshiftConfigured() bool {
	return c.RedshiftHost != "" || c.RedshiftDatabase != "" || c.RedshiftUser != "" || c.RedshiftPassword != ""
}

func (c Config) MySQLConfigured() bool {
	return c.MySQLHost != "" || c.MySQLDatabase != "" || c.MySQLUser != "" || c.MySQLPassword != ""
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
