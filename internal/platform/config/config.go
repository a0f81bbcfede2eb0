package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr      string
	LogLevel  string
	LogFormat string

	JWTSigningKey   string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// LoginRateLimit caps login attempts per (email, client address) within
	// LoginRateWindow; 0 disables.
	LoginRateLimit  int
	LoginRateWindow time.Duration

	// DatabaseURL selects Postgres stores for users, cases and history.
	// Empty means in-memory stores.
	DatabaseURL string

	// BootstrapManagerEmail seeds one manager account on an empty user store.
	BootstrapManagerEmail    string
	BootstrapManagerPassword string

	Entities  EntitySource
	Countries CountryConfig
	Search    SearchConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Archive   ArchiveConfig
	Tracing   TracingConfig
}

// EntitySource selects where sanctioned entity records are read from.
type EntitySource struct {
	Kind       string // memory | postgres | sqlite
	DataPath   string // NDJSON file for the memory source
	SQLitePath string
}

// CountryConfig points at an optional YAML override of the country table.
type CountryConfig struct {
	TablePath string
}

// SearchConfig bounds search results and configures the result cache.
type SearchConfig struct {
	ResultCap  int
	Cache      string // none | memory | redis
	CacheTTL   time.Duration
	RateLimit  int // requests per window per user; 0 disables
	RateWindow time.Duration
}

// RedisConfig configures the shared Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit event sink. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// ArchiveConfig configures the S3 copy of history records. Empty Bucket disables it.
type ArchiveConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
	Prefix    string
}

// TracingConfig configures span export over OTLP/HTTP. Empty Endpoint keeps
// the no-op tracer provider.
type TracingConfig struct {
	Endpoint    string // collector host:port
	Insecure    bool
	SampleRatio float64
	ServiceName string
}

// DefaultSearchCap is the per-leg result cap of entity search.
const DefaultSearchCap = 20

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:      envString("WATCHDESK_ADDR", ":8080"),
		LogLevel:  envString("LOG_LEVEL", "info"),
		LogFormat: envString("LOG_FORMAT", "json"),

		// Use a default for development - should be overridden in production
		JWTSigningKey:   envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:       envString("JWT_ISSUER", "watchdesk"),
		JWTAudience:     envString("JWT_AUDIENCE", "watchdesk-api"),
		AccessTokenTTL:  envDuration("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL: envDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		LoginRateLimit:  envInt("LOGIN_RATE_LIMIT", 10),
		LoginRateWindow: envDuration("LOGIN_RATE_WINDOW", 15*time.Minute),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		BootstrapManagerEmail:    os.Getenv("BOOTSTRAP_MANAGER_EMAIL"),
		BootstrapManagerPassword: os.Getenv("BOOTSTRAP_MANAGER_PASSWORD"),

		Entities: EntitySource{
			Kind:       envString("ENTITY_SOURCE", "memory"),
			DataPath:   os.Getenv("ENTITY_DATA_PATH"),
			SQLitePath: envString("ENTITY_SQLITE_PATH", "entities.db"),
		},
		Countries: CountryConfig{
			TablePath: os.Getenv("COUNTRY_TABLE_PATH"),
		},
		Search: SearchConfig{
			ResultCap:  envInt("SEARCH_RESULT_CAP", DefaultSearchCap),
			Cache:      envString("SEARCH_CACHE", "none"),
			CacheTTL:   envDuration("SEARCH_CACHE_TTL", 5*time.Minute),
			RateLimit:  envInt("SEARCH_RATE_LIMIT", 60),
			RateWindow: envDuration("SEARCH_RATE_WINDOW", time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    envList("KAFKA_BROKERS"),
			AuditTopic: envString("KAFKA_AUDIT_TOPIC", "watchdesk.case-events"),
		},
		Archive: ArchiveConfig{
			Bucket:    os.Getenv("ARCHIVE_S3_BUCKET"),
			Region:    envString("ARCHIVE_S3_REGION", "us-east-1"),
			Endpoint:  os.Getenv("ARCHIVE_S3_ENDPOINT"),
			PathStyle: os.Getenv("ARCHIVE_S3_PATH_STYLE") == "true",
			Prefix:    envString("ARCHIVE_S3_PREFIX", "history"),
		},
		Tracing: TracingConfig{
			Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure:    os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true",
			SampleRatio: envRatio("TRACE_SAMPLE_RATIO", 1),
			ServiceName: envString("OTEL_SERVICE_NAME", "watchdesk"),
		},
	}
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// envRatio reads a fraction in [0, 1].
func envRatio(key string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil || f < 0 || f > 1 {
		return def
	}
	return f
}

func envList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
