package config

// EnvPrefix is the envconfig prefix shared by every setting.
const EnvPrefix = "PAYGATE"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names, kept as constants so tests and tooling
// reference the same spelling.
const (
	EnvAppEnv   = "PAYGATE_APP_ENV"
	EnvPort     = "PAYGATE_APP_PORT"
	EnvLogLevel = "PAYGATE_LOG_LEVEL"

	EnvDBDSN    = "PAYGATE_DB_DSN"
	EnvDBHost   = "PAYGATE_DB_HOST"
	EnvDBPort   = "PAYGATE_DB_PORT"
	EnvDBUser   = "PAYGATE_DB_USER"
	EnvDBName   = "PAYGATE_DB_NAME"
	EnvRedisURL = "PAYGATE_REDIS_URL"

	EnvRevealSecret  = "PAYGATE_REVEAL_TOKEN_SECRET"
	EnvInternalToken = "PAYGATE_INTERNAL_API_TOKEN"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
