// Package config provides configuration management for the gated Pub/Sub system.
package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration options for the gated Pub/Sub system.
type Config struct {
	// Server configuration
	Port   string
	Host   string
	WSPath string

	// Topic configuration
	DefaultRingBufferSize int
	DefaultPeerBufferSize int
	DefaultPublishPolicy  string

	// Publisher configuration
	DefaultLatch  bool
	DefaultActive bool

	// Timeout configuration
	WriteTimeout time.Duration
	ReadTimeout  time.Duration

	// Logging configuration
	LogLevel string
}

// NewConfig creates a new configuration with default values.
func NewConfig() *Config {
	return &Config{
		Port:                  getEnv("PORT", "8080"),
		Host:                  getEnv("HOST", "0.0.0.0"),
		WSPath:                getEnv("WS_PATH", "/ws"),
		DefaultRingBufferSize: getEnvAsInt("DEFAULT_RING_BUFFER_SIZE", 1000),
		DefaultPeerBufferSize: getEnvAsInt("DEFAULT_PEER_BUFFER_SIZE", 100),
		DefaultPublishPolicy:  getEnv("DEFAULT_PUBLISH_POLICY", "DROP_OLDEST"),
		DefaultLatch:          getEnvAsBool("DEFAULT_LATCH", false),
		DefaultActive:         getEnvAsBool("DEFAULT_ACTIVE", true),
		WriteTimeout:          getEnvAsDuration("WRITE_TIMEOUT", 30*time.Second),
		ReadTimeout:           getEnvAsDuration("READ_TIMEOUT", 60*time.Second),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
	}
}

// ParseFlags parses command-line flags and updates the configuration.
func (c *Config) ParseFlags() {
	flag.StringVar(&c.Port, "port", c.Port, "HTTP server port")
	flag.StringVar(&c.Host, "host", c.Host, "HTTP server host")
	flag.StringVar(&c.WSPath, "ws-path", c.WSPath, "WebSocket endpoint path")
	flag.IntVar(&c.DefaultRingBufferSize, "ring-buffer-size", c.DefaultRingBufferSize, "Default retained-message capacity for topics")
	flag.IntVar(&c.DefaultPeerBufferSize, "peer-buffer-size", c.DefaultPeerBufferSize, "Default peer send buffer size")
	flag.StringVar(&c.DefaultPublishPolicy, "publish-policy", c.DefaultPublishPolicy, "Default publish policy (DROP_OLDEST, DISCONNECT)")
	flag.BoolVar(&c.DefaultLatch, "latch", c.DefaultLatch, "Replay the last retained message to newly connecting peers")
	flag.BoolVar(&c.DefaultActive, "active", c.DefaultActive, "Initial active state for topic publishers")
	flag.DurationVar(&c.WriteTimeout, "write-timeout", c.WriteTimeout, "WebSocket write timeout")
	flag.DurationVar(&c.ReadTimeout, "read-timeout", c.ReadTimeout, "WebSocket read timeout")
	flag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")

	flag.Parse()
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a duration or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
