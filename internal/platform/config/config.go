package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration. FromEnv keeps main lean.
type Config struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string

	Redis    RedisConfig
	Kafka    KafkaConfig
	Gateways GatewayConfig

	Verification VerificationConfig

	// SweepInterval is how often the background sweep advances visits whose
	// scheduled window has opened and settles checked-out visits.
	SweepInterval time.Duration
}

// GatewayConfig holds connection settings for the upstream scheduling and
// caregiver registry services.
type GatewayConfig struct {
	SchedulingURL    string
	SchedulingAPIKey string
	CaregiverURL     string
	CaregiverAPIKey  string
	Timeout          time.Duration
}

// RedisConfig holds connection settings for the caregiver lookup cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds settings for the audit outbox publisher.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// VerificationConfig carries the EVV policy knobs. Thresholds apply
// platform-wide; the timezone fixes how scheduled time-of-day is anchored
// (per deployment, never per call).
type VerificationConfig struct {
	// VarianceMinutes is the absolute duration-variance threshold.
	VarianceMinutes time.Duration
	// VariancePercent is the relative threshold (0.20 = 20%).
	VariancePercent float64
	// DefaultGeofenceRadiusMeters applies when the scheduling system did
	// not set a radius on the address.
	DefaultGeofenceRadiusMeters float64
	// Timezone anchors scheduled time-of-day, e.g. "America/New_York".
	Timezone string
	// IntegritySecret enables keyed signatures on sealed records when set.
	// Hash-only tamper detection works without it.
	IntegritySecret string
}

// CaregiverCacheTTL bounds retention of cached caregiver registry data.
var CaregiverCacheTTL = 5 * time.Minute

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	addr := os.Getenv("CARETRAIL_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	tz := os.Getenv("EVV_TIMEZONE")
	if tz == "" {
		tz = "America/New_York"
	}

	return Config{
		Addr:          addr,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSigningKey: jwtSigningKey,
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: envString("KAFKA_AUDIT_TOPIC", "caretrail.audit.events"),
		},
		Gateways: GatewayConfig{
			SchedulingURL:    os.Getenv("SCHEDULING_URL"),
			SchedulingAPIKey: os.Getenv("SCHEDULING_API_KEY"),
			CaregiverURL:     os.Getenv("CAREGIVER_REGISTRY_URL"),
			CaregiverAPIKey:  os.Getenv("CAREGIVER_REGISTRY_API_KEY"),
			Timeout:          envDuration("GATEWAY_TIMEOUT", 10*time.Second),
		},
		SweepInterval: envDuration("EVV_SWEEP_INTERVAL", time.Minute),
		Verification: VerificationConfig{
			VarianceMinutes:             envDuration("EVV_VARIANCE_MINUTES", 15*time.Minute),
			VariancePercent:             envFloat("EVV_VARIANCE_PERCENT", 0.20),
			DefaultGeofenceRadiusMeters: envFloat("EVV_GEOFENCE_RADIUS_METERS", 100),
			Timezone:                    tz,
			IntegritySecret:             os.Getenv("EVV_INTEGRITY_SECRET"),
		},
	}
}

func envString(key, fallback string) string {
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

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if part := s[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
