package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable consumed by the engine.
	EnvPrefix = "VYRONA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "VYRONA_DB_DSN"
	EnvDBHost = "VYRONA_DB_HOST"
	EnvDBUser = "VYRONA_DB_USER"
	EnvDBName = "VYRONA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Settlement   SettlementConfig
	Sweep        SweepConfig
	Square       SquareConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
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
	Env          string `envconfig:"VYRONA_APP_ENV" required:"true"`
	Port         string `envconfig:"VYRONA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VYRONA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VYRONA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VYRONA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VYRONA_DB_DSN"`
	Driver string `envconfig:"VYRONA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VYRONA_DB_HOST"`
	LegacyPort     int    `envconfig:"VYRONA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VYRONA_DB_USER"`
	LegacyPassword string `envconfig:"VYRONA_DB_PASSWORD"`
	LegacyName     string `envconfig:"VYRONA_DB_NAME"`
	LegacySSLMode  string `envconfig:"VYRONA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VYRONA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VYRONA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VYRONA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VYRONA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VYRONA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VYRONA_REDIS_ADDR"`
	Password     string        `envconfig:"VYRONA_REDIS_PASSWORD"`
	DB           int           `envconfig:"VYRONA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VYRONA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VYRONA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VYRONA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VYRONA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VYRONA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VYRONA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VYRONA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VYRONA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VYRONA_AUTO_MIGRATE" default:"false"`
}

// SettlementConfig tunes the coordinator's retry and timeout behavior.
type SettlementConfig struct {
	MaxOrderAttempts  int           `envconfig:"VYRONA_SETTLEMENT_MAX_ORDER_ATTEMPTS" default:"5"`
	RetryBaseDelay    time.Duration `envconfig:"VYRONA_SETTLEMENT_RETRY_BASE_DELAY" default:"250ms"`
	ProviderTimeout   time.Duration `envconfig:"VYRONA_SETTLEMENT_PROVIDER_TIMEOUT" default:"10s"`
	AwaitPollInterval time.Duration `envconfig:"VYRONA_SETTLEMENT_AWAIT_POLL_INTERVAL" default:"2s"`
	AwaitMaxWait      time.Duration `envconfig:"VYRONA_SETTLEMENT_AWAIT_MAX_WAIT" default:"60s"`
}

// SweepConfig tunes the background settlement sweep.
type SweepConfig struct {
	Interval  time.Duration `envconfig:"VYRONA_SWEEP_INTERVAL" default:"1m"`
	BatchSize int           `envconfig:"VYRONA_SWEEP_BATCH_SIZE" default:"100"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"VYRONA_SQUARE_ACCESS_TOKEN"`
	Environment string `envconfig:"VYRONA_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"VYRONA_SQUARE_LOCATION_ID"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"VYRONA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"VYRONA_PUBSUB_NOTIFICATION_TOPIC" default:"vy-participant-events"`
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
