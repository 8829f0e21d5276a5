package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	HTTPPort      string
	BiddingWindow time.Duration
	SweepInterval time.Duration
	DSN           string
	MigrationsDir string
	KafkaBrokers  []string
	KafkaTopic    string
}

func LoadConfig() *Config {
	return &Config{
		HTTPPort:      getEnv("APP_PORT", "8080"),
		BiddingWindow: getDuration("BIDDING_WINDOW", 5*time.Minute),
		SweepInterval: getDuration("SWEEP_INTERVAL", 30*time.Second),
		DSN:           getEnv("APP_DSN", ""),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),
		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "auction-events"),
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%s", c.HTTPPort)
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getDuration parses values like "5m" or "90s"; bad values fall back to the default
func getDuration(key string, defaultVal time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
