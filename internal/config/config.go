// Package config collects process configuration from the environment.
package config

import (
	"os"
	"time"
)

// Config holds everything the process needs to wire itself up. Optional
// integrations (NATS, Redis, MQTT) stay disabled while their URL is empty.
type Config struct {
	Port string

	NATSURL   string
	RedisURL  string
	MQTTURL   string
	MQTTTopic string

	ShutdownTimeout time.Duration
}

// FromEnv reads the configuration with sensible defaults.
func FromEnv() Config {
	return Config{
		Port:            envOr("PORT", "8001"),
		NATSURL:         os.Getenv("NATS_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		MQTTURL:         os.Getenv("MQTT_BROKER_URL"),
		MQTTTopic:       envOr("MQTT_TOPIC", "trafficd/vehicles/+/position"),
		ShutdownTimeout: 5 * time.Second,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
