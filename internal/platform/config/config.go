package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration. Values come from the
// environment so main stays lean and deployments stay twelve-factor.
type Server struct {
	Addr          string
	JWTSigningKey string
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Registry      RegistryConfig
}

// RegistryConfig names the well-known ledger accounts and the optional
// first administrator provisioned at startup.
type RegistryConfig struct {
	Account         string
	CreditFund      string
	BootstrapAdmin  string
	BootstrapSecret string
}

// PostgresConfig holds connection settings shared by the group store
// (database/sql) and the asset ledger (pgx pool).
type PostgresConfig struct {
	URL string
}

// RedisConfig holds connection settings for the remit lock.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds audit publishing settings. Empty brokers disable the
// kafka sink and audit events stay on the in-process store.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("TANDAPOOL_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; override in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "tandapool.audit"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		Postgres: PostgresConfig{
			URL: os.Getenv("POSTGRES_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   topic,
		},
		Registry: RegistryConfig{
			Account:         envOr("REGISTRY_ACCOUNT", "registry"),
			CreditFund:      envOr("CREDIT_FUND_ACCOUNT", "credit-fund"),
			BootstrapAdmin:  os.Getenv("REGISTRY_BOOTSTRAP_ACCOUNT"),
			BootstrapSecret: os.Getenv("REGISTRY_BOOTSTRAP_SECRET"),
		},
	}
}
