package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Orders       OrdersConfig
	Reveal       RevealConfig
	Internal     InternalConfig
	RateLimit    RateLimitConfig
	Cron         CronConfig
	Outbox       OutboxConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PAYGATE_APP_ENV" required:"true"`
	Port         string `envconfig:"PAYGATE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PAYGATE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAYGATE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PAYGATE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PAYGATE_DB_DSN"`
	Driver string `envconfig:"PAYGATE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PAYGATE_DB_HOST"`
	LegacyPort     int    `envconfig:"PAYGATE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PAYGATE_DB_USER"`
	LegacyPassword string `envconfig:"PAYGATE_DB_PASSWORD"`
	LegacyName     string `envconfig:"PAYGATE_DB_NAME"`
	LegacySSLMode  string `envconfig:"PAYGATE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PAYGATE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAYGATE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAYGATE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAYGATE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAYGATE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PAYGATE_REDIS_ADDR"`
	Password     string        `envconfig:"PAYGATE_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAYGATE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAYGATE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAYGATE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAYGATE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAYGATE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAYGATE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// OrdersConfig tunes order lifecycle behavior.
type OrdersConfig struct {
	TTL              time.Duration `envconfig:"PAYGATE_ORDER_TTL" default:"24h"`
	MaxProofAttempts int           `envconfig:"PAYGATE_ORDER_MAX_PROOF_ATTEMPTS" default:"5"`
}

// RevealConfig tunes the order-scoped payment rail reveal.
type RevealConfig struct {
	TokenSecret string        `envconfig:"PAYGATE_REVEAL_TOKEN_SECRET" required:"true"`
	TokenIssuer string        `envconfig:"PAYGATE_REVEAL_TOKEN_ISSUER" default:"paygate"`
	TTL         time.Duration `envconfig:"PAYGATE_REVEAL_TTL" default:"15m"`
}

// InternalConfig guards the operator-facing endpoints.
type InternalConfig struct {
	APIToken string `envconfig:"PAYGATE_INTERNAL_API_TOKEN" required:"true"`
}

// RateLimitConfig throttles the reveal endpoint per client IP. A zero
// limit disables the throttle.
type RateLimitConfig struct {
	RevealWindow time.Duration `envconfig:"PAYGATE_RATE_REVEAL_WINDOW" default:"1m"`
	RevealLimit  int           `envconfig:"PAYGATE_RATE_REVEAL_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PAYGATE_AUTO_MIGRATE" default:"false"`
}

type CronConfig struct {
	OrderExpiryInterval time.Duration `envconfig:"PAYGATE_CRON_ORDER_EXPIRY_INTERVAL" default:"1m"`
	OrderExpiryBatch    int           `envconfig:"PAYGATE_CRON_ORDER_EXPIRY_BATCH" default:"100"`
	LockTTL             time.Duration `envconfig:"PAYGATE_CRON_LOCK_TTL" default:"5m"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PAYGATE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PAYGATE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PAYGATE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
