// Package config loads server configuration from YAML with environment
// overrides. Precedence: defaults, then .env file, then the YAML file,
// then SMPTE_* environment variables.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	API    APIConfig    `yaml:"api"`
	Status StatusConfig `yaml:"status"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
}

// ServerConfig addresses the TCP protocol listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// APIConfig addresses the HTTP listener (status, metrics, websocket).
type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StatusConfig controls the periodic status log line.
type StatusConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// MQTTConfig configures the optional broadcast mirror. Mirroring is off
// unless Broker is set.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

// Load reads the config at path. A missing file is not an error: the
// defaults (plus env overrides) apply.
func Load(path string) (*Config, error) {
	// Optional; system env and YAML still apply when absent.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		API: APIConfig{
			Host: "localhost",
			Port: 8081,
		},
		Status: StatusConfig{
			Enabled:  true,
			Interval: 30 * time.Second,
		},
		MQTT: MQTTConfig{
			ClientID:    "smpte-tc-server",
			TopicPrefix: "smpte/timecode",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.Server.Host = getEnv("SMPTE_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("SMPTE_PORT", cfg.Server.Port)
	cfg.API.Host = getEnv("SMPTE_API_HOST", cfg.API.Host)
	cfg.API.Port = getEnvInt("SMPTE_API_PORT", cfg.API.Port)
	cfg.MQTT.Broker = getEnv("SMPTE_MQTT_BROKER", cfg.MQTT.Broker)
	cfg.MQTT.TopicPrefix = getEnv("SMPTE_MQTT_TOPIC_PREFIX", cfg.MQTT.TopicPrefix)

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}
