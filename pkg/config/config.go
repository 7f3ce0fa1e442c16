package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App            AppConfig
	Service        ServiceConfig
	DB             DBConfig
	Redis          RedisConfig
	JWT            JWTConfig
	FeatureFlags   FeatureFlagsConfig
	Eventing       EventingConfig
	Outbox         OutboxConfig
	Checkout       CheckoutConfig
	Payment        PaymentConfig
	Square         SquareConfig
	Production     ProductionConfig
	CircuitBreaker CircuitBreakerConfig
	GCP            GCPConfig
	PubSub         PubSubConfig
	Kafka          KafkaConfig
	Cron           CronConfig
	HTTP           HTTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ORDERFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"ORDERFLOW_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ORDERFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORDERFLOW_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"ORDERFLOW_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

// ConsoleLogs reports whether logs should be written for humans.
func (a AppConfig) ConsoleLogs() bool {
	return strings.EqualFold(strings.TrimSpace(a.LogFormat), "console")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ORDERFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN        string `envconfig:"ORDERFLOW_DB_DSN"`
	Driver     string `envconfig:"ORDERFLOW_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"ORDERFLOW_SQLITE_PATH" default:"orderflow.db"`

	LegacyHost     string `envconfig:"ORDERFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"ORDERFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORDERFLOW_DB_USER"`
	LegacyPassword string `envconfig:"ORDERFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORDERFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORDERFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORDERFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORDERFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORDERFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORDERFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERFLOW_REDIS_URL"`
	Address      string        `envconfig:"ORDERFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"ORDERFLOW_JWT_SECRET"`
	Issuer            string `envconfig:"ORDERFLOW_JWT_ISSUER" default:"orderflow"`
	ExpirationMinutes int    `envconfig:"ORDERFLOW_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite          bool `envconfig:"ORDERFLOW_USE_SQLITE" default:"false"`
	AutoMigrate        bool `envconfig:"ORDERFLOW_AUTO_MIGRATE" default:"false"`
	EmbeddedDispatcher bool `envconfig:"ORDERFLOW_EMBEDDED_DISPATCHER" default:"true"`
	CheckoutLease      bool `envconfig:"ORDERFLOW_CHECKOUT_LEASE" default:"false"`
	RelayPubSub        bool `envconfig:"ORDERFLOW_RELAY_PUBSUB" default:"false"`
	RelayKafka         bool `envconfig:"ORDERFLOW_RELAY_KAFKA" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"ORDERFLOW_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type OutboxConfig struct {
	PollInterval time.Duration `envconfig:"ORDERFLOW_OUTBOX_POLL_INTERVAL" default:"10s"`
	MaxRetries   int           `envconfig:"ORDERFLOW_OUTBOX_MAX_RETRIES" default:"3"`
	BatchSize    int           `envconfig:"ORDERFLOW_OUTBOX_BATCH_SIZE" default:"0"`
}

type CheckoutConfig struct {
	LeaseTTL        time.Duration `envconfig:"ORDERFLOW_CHECKOUT_LEASE_TTL" default:"2m"`
	ConflictRetries int           `envconfig:"ORDERFLOW_CHECKOUT_CONFLICT_RETRIES" default:"3"`
	PaymentTimeout  time.Duration `envconfig:"ORDERFLOW_CHECKOUT_PAYMENT_TIMEOUT" default:"30s"`
}

type PaymentConfig struct {
	Provider        string  `envconfig:"ORDERFLOW_PAYMENT_PROVIDER" default:"mock"`
	Currency        string  `envconfig:"ORDERFLOW_PAYMENT_CURRENCY" default:"USD"`
	MockSuccessRate float64 `envconfig:"ORDERFLOW_PAYMENT_MOCK_SUCCESS_RATE" default:"0.8"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"ORDERFLOW_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"ORDERFLOW_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"ORDERFLOW_SQUARE_LOCATION_ID"`
	SourceID    string `envconfig:"ORDERFLOW_SQUARE_SOURCE_ID" default:"cnon:card-nonce-ok"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type ProductionConfig struct {
	MockSuccessRate float64 `envconfig:"ORDERFLOW_PRODUCTION_MOCK_SUCCESS_RATE" default:"0.9"`
}

type CircuitBreakerConfig struct {
	MaxRequests         uint32        `envconfig:"ORDERFLOW_BREAKER_MAX_REQUESTS" default:"1"`
	Interval            time.Duration `envconfig:"ORDERFLOW_BREAKER_INTERVAL" default:"1m"`
	Timeout             time.Duration `envconfig:"ORDERFLOW_BREAKER_TIMEOUT" default:"30s"`
	ConsecutiveFailures uint32        `envconfig:"ORDERFLOW_BREAKER_CONSECUTIVE_FAILURES" default:"5"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"ORDERFLOW_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"ORDERFLOW_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	EventsTopic string `envconfig:"ORDERFLOW_PUBSUB_EVENTS_TOPIC" default:"orderflow-events"`
}

type KafkaConfig struct {
	Brokers      []string      `envconfig:"ORDERFLOW_KAFKA_BROKERS"`
	EventsTopic  string        `envconfig:"ORDERFLOW_KAFKA_EVENTS_TOPIC" default:"orderflow.events"`
	WriteTimeout time.Duration `envconfig:"ORDERFLOW_KAFKA_WRITE_TIMEOUT" default:"10s"`
}

type CronConfig struct {
	Interval           time.Duration `envconfig:"ORDERFLOW_CRON_INTERVAL" default:"5m"`
	StaleCheckoutAfter time.Duration `envconfig:"ORDERFLOW_CRON_STALE_CHECKOUT_AFTER" default:"30m"`
}

type HTTPConfig struct {
	CORSOrigins         []string      `envconfig:"ORDERFLOW_HTTP_CORS_ORIGINS"`
	CheckoutRateWindow  time.Duration `envconfig:"ORDERFLOW_HTTP_CHECKOUT_RATE_WINDOW" default:"1m"`
	CheckoutRateLimit   int           `envconfig:"ORDERFLOW_HTTP_CHECKOUT_RATE_LIMIT" default:"10"`
	IdempotencyTTL      time.Duration `envconfig:"ORDERFLOW_HTTP_IDEMPOTENCY_TTL" default:"168h"`
	ShutdownGracePeriod time.Duration `envconfig:"ORDERFLOW_HTTP_SHUTDOWN_GRACE" default:"15s"`
	ReadHeaderTimeout   time.Duration `envconfig:"ORDERFLOW_HTTP_READ_HEADER_TIMEOUT" default:"5s"`
}

// IsSQLite reports whether the local sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

func (db *DBConfig) ensureDSN() error {
	if db.IsSQLite() || db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
