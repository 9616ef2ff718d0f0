package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the non-database runtime settings. Every field has a default
// so the server runs with no config file at all; environment variables win
// over the file.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Gateway struct {
		PingIntervalSec int `yaml:"ping_interval_sec"`
	} `yaml:"gateway"`
}

func defaultConfig() *Config {
	var config Config
	config.Server.Port = "8080"
	config.NATS.URL = "" // empty runs the in-process bus
	config.Gateway.PingIntervalSec = 30
	return &config
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.Server.Port = getEnv("PORT", config.Server.Port)
	config.NATS.URL = getEnv("NATS_URL", config.NATS.URL)
	config.Gateway.PingIntervalSec = getEnvAsInt("GATEWAY_PING_INTERVAL_SEC", config.Gateway.PingIntervalSec)

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
