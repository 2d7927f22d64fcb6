package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultRatingPromptPrefix is the opening of the automated rating invitation.
const DefaultRatingPromptPrefix = "Por gentileza, avalie seu atendimento pelo link abaixo:"

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Ticket    TicketConfig
	TicketBot TicketBotConfig
	WhatsApp  WhatsAppConfig
	NATS      NATSConfig
	Kafka     KafkaConfig
	Audit     AuditConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
	ApplicationName string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level   string
	Format  string
	Service string
	Env     string
	Version string
}

// TicketConfig tunes the ticket lifecycle rules.
type TicketConfig struct {
	// ReopenGrace is the fallback window in which a recently touched ticket is
	// reused instead of creating a new one.
	ReopenGrace            time.Duration
	RatingPromptPrefix     string
	CleanupInterval        time.Duration
	CleanupAfterCloseDelay time.Duration
	TemplatesPath          string
}

// TicketBotConfig points at the external rating automation.
type TicketBotConfig struct {
	WebhookURL string
	Timeout    time.Duration
	// CompanyURLs overrides WebhookURL per company.
	CompanyURLs map[int64]string
}

// WhatsAppConfig addresses the outbound message gateway.
type WhatsAppConfig struct {
	GatewayURL string
	Timeout    time.Duration
}

// NATSConfig configures the room broadcaster.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

// KafkaConfig configures the lifecycle event stream.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// AuditConfig configures the queue change log.
type AuditConfig struct {
	Backend  string
	Capacity int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "chatdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			MaxConns:        maxConns,
			MinConns:        minConns,
			RunMigrations:   runMigrations,
			ConnMaxIdleSec:  connMaxIdle,
			ConnMaxLifeSec:  connMaxLife,
			ApplicationName: getEnv("APP_NAME", "chatdesk"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:   getEnv("LOG_LEVEL", "info"),
			Format:  getEnv("LOG_FORMAT", "json"),
			Service: getEnv("APP_NAME", "chatdesk"),
			Env:     getEnv("APP_ENV", "development"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Ticket: TicketConfig{
			ReopenGrace:            getEnvAsDuration("TICKET_REOPEN_GRACE", 2*time.Hour),
			RatingPromptPrefix:     getEnv("RATING_PROMPT_PREFIX", DefaultRatingPromptPrefix),
			CleanupInterval:        getEnvAsDuration("CLEANUP_INTERVAL", time.Minute),
			CleanupAfterCloseDelay: getEnvAsDuration("CLEANUP_AFTER_CLOSE_DELAY", 2*time.Second),
			TemplatesPath:          os.Getenv("TICKET_TEMPLATES_PATH"),
		},
		TicketBot: TicketBotConfig{
			WebhookURL:  os.Getenv("TICKETBOT_WEBHOOK_URL"),
			Timeout:     getEnvAsDuration("TICKETBOT_TIMEOUT", 10*time.Second),
			CompanyURLs: companyOverrides("TICKETBOT_WEBHOOK_URL_", os.Environ()),
		},
		WhatsApp: WhatsAppConfig{
			GatewayURL: os.Getenv("WHATSAPP_GATEWAY_URL"),
			Timeout:    getEnvAsDuration("WHATSAPP_GATEWAY_TIMEOUT", 15*time.Second),
		},
		NATS: NATSConfig{
			URL:           os.Getenv("NATS_URL"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "chatdesk"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC_TICKET", "chatdesk.tickets"),
		},
		Audit: AuditConfig{
			Backend:  getEnv("AUDIT_BACKEND", "memory"),
			Capacity: getEnvAsInt("AUDIT_CAPACITY", 100),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// URLFor returns the webhook for a company, falling back to the global one.
func (t TicketBotConfig) URLFor(companyID int64) string {
	if url, ok := t.CompanyURLs[companyID]; ok && url != "" {
		return url
	}
	return t.WebhookURL
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvAsDuration accepts Go duration strings or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func companyOverrides(prefix string, environ []string) map[int64]string {
	out := map[int64]string{}
	for _, kv := range environ {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) || val == "" {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(key, prefix), 10, 64)
		if err != nil {
			continue
		}
		out[id] = val
	}
	return out
}
