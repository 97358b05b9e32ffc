package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	JWT       JWTConfig
	Gateway   GatewayConfig
	Campaign  CampaignConfig
	Retry     RetryConfig
	Scheduler SchedulerConfig
	LogLevel  string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int // seconds
}

// GatewayConfig holds messaging gateway configuration
type GatewayConfig struct {
	BaseURL        string
	AccountID      string
	APISecret      string
	CountryCode    string
	TimeoutSeconds int
	Mock           bool
}

// RequestTimeout returns the gateway request timeout as a duration
func (g GatewayConfig) RequestTimeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// CampaignConfig holds campaign dispatch tuning
type CampaignConfig struct {
	BatchSize         int
	MessagesPerMinute int
}

// RetryConfig holds retry backoff tuning
type RetryConfig struct {
	MaxAttempts      int
	BaseDelaySeconds int
	MaxDelaySeconds  int
}

// BaseDelay returns the first backoff step as a duration
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelaySeconds) * time.Second
}

// MaxDelay returns the backoff cap as a duration
func (r RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelaySeconds) * time.Second
}

// SchedulerConfig holds the periodic task intervals
type SchedulerConfig struct {
	TriggerIntervalSeconds  int
	SweepIntervalSeconds    int
	CampaignIntervalSeconds int
}

// TriggerInterval returns the automation trigger evaluation interval
func (s SchedulerConfig) TriggerInterval() time.Duration {
	return time.Duration(s.TriggerIntervalSeconds) * time.Second
}

// SweepInterval returns the retry sweep interval
func (s SchedulerConfig) SweepInterval() time.Duration {
	return time.Duration(s.SweepIntervalSeconds) * time.Second
}

// CampaignInterval returns the scheduled campaign sweep interval
func (s SchedulerConfig) CampaignInterval() time.Duration {
	return time.Duration(s.CampaignIntervalSeconds) * time.Second
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; environment variables suffice
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	viper.SetDefault("Server.Port", "4000")
	viper.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	viper.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	viper.SetDefault("MongoDB.Database", "crediflow-crm")
	viper.SetDefault("JWT.ExpiresIn", 24*60*60)
	viper.SetDefault("LogLevel", "info")
	viper.SetDefault("Gateway.CountryCode", "91")
	viper.SetDefault("Gateway.TimeoutSeconds", 15)
	viper.SetDefault("Gateway.Mock", true)
	viper.SetDefault("Campaign.BatchSize", 25)
	viper.SetDefault("Campaign.MessagesPerMinute", 60)
	viper.SetDefault("Retry.MaxAttempts", 3)
	viper.SetDefault("Retry.BaseDelaySeconds", 120)
	viper.SetDefault("Retry.MaxDelaySeconds", 1800)
	viper.SetDefault("Scheduler.TriggerIntervalSeconds", 30)
	viper.SetDefault("Scheduler.SweepIntervalSeconds", 60)
	viper.SetDefault("Scheduler.CampaignIntervalSeconds", 30)
}
