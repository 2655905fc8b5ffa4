package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/totegamma/peerreview/internal/domain"
	"github.com/totegamma/peerreview/internal/job"
	"github.com/totegamma/peerreview/internal/service"
)

const (
	EnvPostgresDsn = "PEERREVIEW_POSTGRES_DSN"
	EnvSMTPPass    = "PEERREVIEW_SMTP_PASS"
)

type Config struct {
	Server     Server     `yaml:"server"`
	Assignment Assignment `yaml:"assignment"`
	Consensus  Consensus  `yaml:"consensus"`
	Ledger     Ledger     `yaml:"ledger"`
	Mail       Mail       `yaml:"mail"`
}

type Server struct {
	Listen         string `yaml:"listen"`
	DatabaseDriver string `yaml:"databaseDriver"` // postgres, mysql
	PostgresDsn    string `yaml:"postgresDsn"`
	RedisAddr      string `yaml:"redisAddr"`
	RedisDB        int    `yaml:"redisDB"`
	MemcachedAddr  string `yaml:"memcachedAddr"`
	EnableTrace    bool   `yaml:"enableTrace"`
	TraceEndpoint  string `yaml:"traceEndpoint"`
	SentryDsn      string `yaml:"sentryDsn"`
	LogLevel       string `yaml:"logLevel"`
}

type Assignment struct {
	DefaultMinimumStake     float64 `yaml:"defaultMinimumStake"`
	DefaultRequiredReviews  int     `yaml:"defaultRequiredReviews"`
	MaxConcurrentReviews    int     `yaml:"maxConcurrentReviews"`
	DirectoryTimeoutSeconds int     `yaml:"directoryTimeoutSeconds"`
	SynonymsPath            string  `yaml:"synonymsPath"`
}

type Consensus struct {
	RewardAmount         float64 `yaml:"rewardAmount"`
	SlashRatio           float64 `yaml:"slashRatio"`
	Supermajority        float64 `yaml:"supermajority"`
	SweepIntervalSeconds int     `yaml:"sweepIntervalSeconds"`
	SweepWorkers         int     `yaml:"sweepWorkers"`
	SweepBatchSize       int     `yaml:"sweepBatchSize"`
}

type Ledger struct {
	Endpoint       string `yaml:"endpoint"`
	UserAgent      string `yaml:"userAgent"`
	APIKey         string `yaml:"apiKey"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

type Mail struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	User          string `yaml:"user"`
	Pass          string `yaml:"pass"`
	From          string `yaml:"from"`
	SkipTLSVerify bool   `yaml:"skipTLSVerify"`
}

func Defaults() Config {
	return Config{
		Server: Server{
			Listen:         ":8000",
			DatabaseDriver: "postgres",
			RedisAddr:      "localhost:6379",
			LogLevel:       "info",
		},
		Assignment: Assignment{
			DefaultMinimumStake:     5,
			DefaultRequiredReviews:  3,
			MaxConcurrentReviews:    3,
			DirectoryTimeoutSeconds: 5,
		},
		Consensus: Consensus{
			RewardAmount:         3,
			SlashRatio:           0.5,
			Supermajority:        0.67,
			SweepIntervalSeconds: 30,
			SweepWorkers:         8,
			SweepBatchSize:       100,
		},
		Ledger: Ledger{
			UserAgent:      "peerreview",
			TimeoutSeconds: 3,
		},
		Mail: Mail{
			Port: 587,
		},
	}
}

// Load reads .env (if present), then the YAML file over the defaults, then
// the environment overrides.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "load .env")
	}

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	config := Defaults()
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, errors.Wrapf(err, "decode %s", path)
	}

	config.applyEnv()
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Parse decodes YAML over the defaults without touching the environment.
func Parse(data []byte) (Config, error) {
	config := Defaults()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, err
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	if dsn := os.Getenv(EnvPostgresDsn); dsn != "" {
		c.Server.PostgresDsn = dsn
	}
	if pass := os.Getenv(EnvSMTPPass); pass != "" {
		c.Mail.Pass = pass
	}
}

func (c Config) Validate() error {
	switch c.Server.DatabaseDriver {
	case "postgres", "mysql":
	default:
		return errors.Errorf("server.databaseDriver must be postgres or mysql, got %q", c.Server.DatabaseDriver)
	}
	if c.Assignment.DefaultMinimumStake < 0 {
		return errors.New("assignment.defaultMinimumStake must not be negative")
	}
	if c.Assignment.DefaultRequiredReviews < 1 {
		return errors.New("assignment.defaultRequiredReviews must be at least 1")
	}
	if c.Consensus.RewardAmount <= 0 {
		return errors.New("consensus.rewardAmount must be positive")
	}
	if c.Consensus.SlashRatio <= 0 || c.Consensus.SlashRatio > 1 {
		return errors.New("consensus.slashRatio must be within (0, 1]")
	}
	if c.Consensus.Supermajority <= 0 || c.Consensus.Supermajority > 1 {
		return errors.New("consensus.supermajority must be within (0, 1]")
	}
	return nil
}

func (c Config) AssignmentSettings() domain.AssignmentSettings {
	return domain.AssignmentSettings{
		DefaultMinimumStake:  decimal.NewFromFloat(c.Assignment.DefaultMinimumStake),
		MaxConcurrentReviews: c.Assignment.MaxConcurrentReviews,
		DirectoryTimeout:     time.Duration(c.Assignment.DirectoryTimeoutSeconds) * time.Second,
		DefaultRequired:      c.Assignment.DefaultRequiredReviews,
	}
}

func (c Config) ConsensusSettings() domain.ConsensusSettings {
	return domain.ConsensusSettings{
		RewardAmount:  decimal.NewFromFloat(c.Consensus.RewardAmount),
		SlashRatio:    decimal.NewFromFloat(c.Consensus.SlashRatio),
		Supermajority: c.Consensus.Supermajority,
	}
}

func (c Config) SweeperConfig() job.SweeperConfig {
	return job.SweeperConfig{
		IntervalSeconds: c.Consensus.SweepIntervalSeconds,
		BatchSize:       c.Consensus.SweepBatchSize,
		Workers:         c.Consensus.SweepWorkers,
	}
}

func (c Config) MailConfig() service.MailConfig {
	return service.MailConfig{
		Host:          c.Mail.Host,
		Port:          c.Mail.Port,
		User:          c.Mail.User,
		Pass:          c.Mail.Pass,
		From:          c.Mail.From,
		SkipTLSVerify: c.Mail.SkipTLSVerify,
	}
}

func (c Config) MailEnabled() bool {
	return c.Mail.Host != "" && c.Mail.From != ""
}
