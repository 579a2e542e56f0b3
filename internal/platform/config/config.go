// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Redis captures connection settings for the OTP store. An empty URL means
// Redis is not configured and the in-process store is used instead.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures the notification event stream settings. Empty Brokers means
// notifications are logged only.
type Kafka struct {
	Brokers []string
	Topic   string
}

// AdminBootstrap seeds a ready-to-use admin account at startup so approvals
// are possible on a fresh deployment.
type AdminBootstrap struct {
	Name     string
	Email    string
	Password string
}

// Server is the full service configuration.
type Server struct {
	Addr           string
	JWTSigningKey  string
	TokenTTL       time.Duration
	OTPTTL         time.Duration
	DispatchRadius float64 // meters
	PostgresURL    string
	Redis          Redis
	Kafka          Kafka
	Admin          AdminBootstrap
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:           envOr("VIGIL_ADDR", ":8080"),
		JWTSigningKey:  envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TokenTTL:       envDuration("JWT_TTL", 5*time.Hour),
		OTPTTL:         envDuration("OTP_TTL", 10*time.Minute),
		DispatchRadius: envFloat("DISPATCH_RADIUS_METERS", 50_000),
		PostgresURL:    os.Getenv("POSTGRES_URL"),
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_NOTIFICATIONS_TOPIC", "vigil.notifications"),
		},
		Admin: AdminBootstrap{
			Name:     envOr("ADMIN_NAME", "Dispatch Admin"),
			Email:    os.Getenv("ADMIN_EMAIL"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
