package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

var GlobalConfig *Config

// Config global configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	MySQL        MySQLConfig        `yaml:"mysql"`
	Redis        RedisConfig        `yaml:"redis"`
	HetznerCloud HetznerCloudConfig `yaml:"hetzner_cloud"`
	HetznerRobot HetznerRobotConfig `yaml:"hetzner_robot"`
	Agent        AgentConfig        `yaml:"agent"`
	Jobs         JobsConfig         `yaml:"jobs"`
	Logger       LoggerConfig       `yaml:"logger"`
	Demo         DemoConfig         `yaml:"demo"`
}

// ServerConfig HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release
}

// MySQLConfig MySQL configuration
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RedisConfig Redis configuration (job locks, optional)
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// HetznerCloudConfig Hetzner Cloud API configuration
type HetznerCloudConfig struct {
	APIToken string `yaml:"api_token"`
}

// HetznerRobotConfig Hetzner Robot API configuration.
// Dedicated server sync is skipped entirely when User is empty.
type HetznerRobotConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// AgentConfig on-host agent configuration
type AgentConfig struct {
	Secret string `yaml:"secret"` // shared secret expected in agent reports
}

// JobsConfig background job intervals (seconds)
type JobsConfig struct {
	CollectInterval        int `yaml:"collect_interval"`
	AnalysisInterval       int `yaml:"analysis_interval"`
	RecommendationInterval int `yaml:"recommendation_interval"`
}

// LoggerConfig logger configuration
type LoggerConfig struct {
	Level  string           `yaml:"level"`  // debug, info, warn, error
	Output string           `yaml:"output"` // console, file, both
	File   LoggerFileConfig `yaml:"file"`
}

// LoggerFileConfig logger file configuration
type LoggerFileConfig struct {
	Path string `yaml:"path"`
}

// DemoConfig demo data seeding
type DemoConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Init initializes configuration
func Init() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}

	applyDefaults(&cfg)
	GlobalConfig = &cfg
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Jobs.CollectInterval <= 0 {
		cfg.Jobs.CollectInterval = 300 // 5 minutes
	}
	if cfg.Jobs.AnalysisInterval <= 0 {
		cfg.Jobs.AnalysisInterval = 3600 // 1 hour
	}
	if cfg.Jobs.RecommendationInterval <= 0 {
		cfg.Jobs.RecommendationInterval = 86400 // 24 hours
	}
	if cfg.Agent.Secret == "" {
		cfg.Agent.Secret = "change-me"
	}
}
