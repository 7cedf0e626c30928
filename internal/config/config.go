package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Company   CompanyConfig   `yaml:"company"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Mailbox   MailboxConfig   `yaml:"mailbox"`
	SES       SESConfig       `yaml:"ses"`
	Screening ScreeningConfig `yaml:"screening"`
	Webhook   WebhookConfig   `yaml:"webhook"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds SQLite settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CompanyConfig holds branding used in candidate-facing links and emails
type CompanyConfig struct {
	Name        string `yaml:"name"`
	FrontendURL string `yaml:"frontend_url"`
}

// OracleConfig holds the external agent API settings.
// Each agent ID may be empty, in which case the deterministic
// fallback is used for that oracle.
type OracleConfig struct {
	BaseURL           string `yaml:"base_url"`
	APIKey            string `yaml:"api_key"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
	ClassifierAgentID string `yaml:"classifier_agent_id"`
	ResumeAgentID     string `yaml:"resume_agent_id"`
	EvaluatorAgentID  string `yaml:"evaluator_agent_id"`
	SummaryAgentID    string `yaml:"summary_agent_id"`
	JobGenAgentID     string `yaml:"jobgen_agent_id"`
	ClassifierMock    bool   `yaml:"classifier_mock"`
	ResumeMock        bool   `yaml:"resume_mock"`
	EvaluatorMock     bool   `yaml:"evaluator_mock"`
	SummaryMock       bool   `yaml:"summary_mock"`
	JobGenMock        bool   `yaml:"jobgen_mock"`
}

// Timeout returns the oracle request timeout as a duration
func (o OracleConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// MailboxConfig holds default IMAP connection settings. Credentials
// saved through the API take precedence over these.
type MailboxConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	Username            string `yaml:"username"`
	Password            string `yaml:"password"`
	Folder              string `yaml:"folder"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
}

// PollInterval returns the polling-mode interval as a duration
func (m MailboxConfig) PollInterval() time.Duration {
	return time.Duration(m.PollIntervalSeconds) * time.Second
}

// SESConfig holds AWS SES settings for outbound mail
type SESConfig struct {
	Region      string `yaml:"region"`
	FromAddress string `yaml:"from_address"`
	FromName    string `yaml:"from_name"`
}

// ScreeningConfig holds interview-link settings
type ScreeningConfig struct {
	LinkExpiryHours int `yaml:"link_expiry_hours"`
}

// WebhookConfig holds the voice-provider webhook settings.
// An empty secret disables signature verification.
type WebhookConfig struct {
	Secret string `yaml:"secret"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "hireops.db"
	}
	if cfg.Company.Name == "" {
		cfg.Company.Name = "HireOps"
	}
	if cfg.Company.FrontendURL == "" {
		cfg.Company.FrontendURL = "http://localhost:3000"
	}
	if cfg.Oracle.TimeoutSeconds == 0 {
		cfg.Oracle.TimeoutSeconds = 60
	}
	if cfg.Mailbox.Port == 0 {
		cfg.Mailbox.Port = 993
	}
	if cfg.Mailbox.Folder == "" {
		cfg.Mailbox.Folder = "INBOX"
	}
	if cfg.Mailbox.PollIntervalSeconds == 0 {
		cfg.Mailbox.PollIntervalSeconds = 60
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-west-2"
	}
	if cfg.Screening.LinkExpiryHours == 0 {
		cfg.Screening.LinkExpiryHours = 72
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars, so secrets
// can live in .env locally and in real env vars in deployment. A missing
// config file is not an error; defaults plus env vars apply.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &Config{}
		applyDefaults(cfg)
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("COMPANY_NAME"); v != "" {
		cfg.Company.Name = v
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		cfg.Company.FrontendURL = v
	}

	if v := os.Getenv("ORACLE_BASE_URL"); v != "" {
		cfg.Oracle.BaseURL = v
	}
	if v := os.Getenv("ORACLE_API_KEY"); v != "" {
		cfg.Oracle.APIKey = v
	}
	if v := os.Getenv("EXTERNAL_CLASSIFIER_AGENT_ID"); v != "" {
		cfg.Oracle.ClassifierAgentID = v
	}
	if v := os.Getenv("EXTERNAL_RESUME_SCORER_AGENT_ID"); v != "" {
		cfg.Oracle.ResumeAgentID = v
	}
	if v := os.Getenv("EXTERNAL_EVALUATOR_AGENT_ID"); v != "" {
		cfg.Oracle.EvaluatorAgentID = v
	}
	if v := os.Getenv("EXTERNAL_SUMMARY_AGENT_ID"); v != "" {
		cfg.Oracle.SummaryAgentID = v
	}
	if v := os.Getenv("EXTERNAL_INTERVIEW_AGENT_ID"); v != "" {
		cfg.Oracle.JobGenAgentID = v
	}
	if v := os.Getenv("CLASSIFIER_MOCK"); v != "" {
		cfg.Oracle.ClassifierMock = parseBool(v)
	}
	if v := os.Getenv("RESUME_SCORER_MOCK"); v != "" {
		cfg.Oracle.ResumeMock = parseBool(v)
	}
	if v := os.Getenv("EVALUATOR_MOCK"); v != "" {
		cfg.Oracle.EvaluatorMock = parseBool(v)
	}
	if v := os.Getenv("SUMMARY_MOCK"); v != "" {
		cfg.Oracle.SummaryMock = parseBool(v)
	}
	if v := os.Getenv("JOBGEN_MOCK"); v != "" {
		cfg.Oracle.JobGenMock = parseBool(v)
	}

	if v := os.Getenv("MAILBOX_HOST"); v != "" {
		cfg.Mailbox.Host = v
	}
	if v := os.Getenv("MAILBOX_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Mailbox.Port = port
		}
	}
	if v := os.Getenv("MAILBOX_USER"); v != "" {
		cfg.Mailbox.Username = v
	}
	if v := os.Getenv("MAILBOX_PASSWORD"); v != "" {
		cfg.Mailbox.Password = v
	}

	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("SES_FROM_ADDRESS"); v != "" {
		cfg.SES.FromAddress = v
	}

	if v := os.Getenv("VOICE_WEBHOOK_SECRET"); v != "" {
		cfg.Webhook.Secret = v
	}

	return cfg, nil
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}
