package config

const EnvPrefix = "ORDERFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv       = "ORDERFLOW_APP_ENV"
	EnvPort         = "ORDERFLOW_APP_PORT"
	EnvLogLevel     = "ORDERFLOW_LOG_LEVEL"
	EnvServiceKind  = "ORDERFLOW_SERVICE_KIND"
	EnvDBDSN        = "ORDERFLOW_DB_DSN"
	EnvDBDriver     = "ORDERFLOW_DB_DRIVER"
	EnvDBHost       = "ORDERFLOW_DB_HOST"
	EnvDBPort       = "ORDERFLOW_DB_PORT"
	EnvDBUser       = "ORDERFLOW_DB_USER"
	EnvDBPassword   = "ORDERFLOW_DB_PASSWORD"
	EnvDBName       = "ORDERFLOW_DB_NAME"
	EnvDBSSLMode    = "ORDERFLOW_DB_SSLMODE"
	EnvSQLitePath   = "ORDERFLOW_SQLITE_PATH"
	EnvUseSQLite    = "ORDERFLOW_USE_SQLITE"
	EnvAutoMigrate  = "ORDERFLOW_AUTO_MIGRATE"
	EnvRedisURL     = "ORDERFLOW_REDIS_URL"
	EnvRedisAddr    = "ORDERFLOW_REDIS_ADDR"
	EnvJWTSecret    = "ORDERFLOW_JWT_SECRET"
	EnvJWTIssuer    = "ORDERFLOW_JWT_ISSUER"
	EnvGCPProjectID = "ORDERFLOW_GCP_PROJECT_ID"

	EnvEmbeddedDispatcher = "ORDERFLOW_EMBEDDED_DISPATCHER"
	EnvCheckoutLease      = "ORDERFLOW_CHECKOUT_LEASE"
	EnvOutboxPollInterval = "ORDERFLOW_OUTBOX_POLL_INTERVAL"
	EnvOutboxMaxRetries   = "ORDERFLOW_OUTBOX_MAX_RETRIES"
	EnvPaymentProvider    = "ORDERFLOW_PAYMENT_PROVIDER"
	EnvPaymentMockRate    = "ORDERFLOW_PAYMENT_MOCK_SUCCESS_RATE"
	EnvProductionMockRate = "ORDERFLOW_PRODUCTION_MOCK_SUCCESS_RATE"
	EnvPubSubEventsTopic  = "ORDERFLOW_PUBSUB_EVENTS_TOPIC"
	EnvKafkaBrokers       = "ORDERFLOW_KAFKA_BROKERS"
	EnvKafkaEventsTopic   = "ORDERFLOW_KAFKA_EVENTS_TOPIC"
	EnvHTTPCORSOrigins    = "ORDERFLOW_HTTP_CORS_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
