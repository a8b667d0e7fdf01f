package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "forecourt"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	App            AppConfig
	DB             DBConfig
	JWT            JWTConfig
	PIN            PINConfig
	Reconciliation ReconciliationConfig
	Sync           SyncConfig
	Audit          AuditConfig
	FeatureFlags   FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FORECOURT_APP_ENV" default:"dev"`
	Port         string `envconfig:"FORECOURT_APP_PORT" default:"8080"`
	StationID    string `envconfig:"FORECOURT_STATION_ID" required:"true"`
	LogLevel     string `envconfig:"FORECOURT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FORECOURT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	// Driver selects the local store. The on-device deployment runs sqlite;
	// postgres exists for shared test rigs.
	Driver string `envconfig:"FORECOURT_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"FORECOURT_DB_DSN" default:"forecourt.db"`

	BusyTimeout time.Duration `envconfig:"FORECOURT_DB_BUSY_TIMEOUT" default:"5s"`

	MaxOpenConns    int           `envconfig:"FORECOURT_DB_MAX_OPEN_CONNS" default:"1"`
	MaxIdleConns    int           `envconfig:"FORECOURT_DB_MAX_IDLE_CONNS" default:"1"`
	ConnMaxLifetime time.Duration `envconfig:"FORECOURT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FORECOURT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db *DBConfig) validate() error {
	switch db.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported db driver %q", db.Driver)
	}
	if db.DSN == "" {
		return fmt.Errorf("%s is required", EnvDBDSN)
	}
	return nil
}

const EnvDBDSN = "FORECOURT_DB_DSN"

type JWTConfig struct {
	Secret            string `envconfig:"FORECOURT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FORECOURT_JWT_ISSUER" default:"forecourt"`
	ExpirationMinutes int    `envconfig:"FORECOURT_JWT_EXPIRATION_MINUTES" default:"720"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PINConfig struct {
	ArgonMemoryKB    int `envconfig:"FORECOURT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FORECOURT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FORECOURT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FORECOURT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FORECOURT_ARGON_KEY_LEN" default:"32"`
}

type ReconciliationConfig struct {
	// MeterToleranceLitres is the absolute shift-level variance allowed
	// between metered and billed quantity before a close is blocked.
	MeterToleranceLitres string `envconfig:"FORECOURT_METER_TOLERANCE_LITRES" default:"0.5"`
	// CashToleranceAmount is the absolute declared-vs-expected cash gap allowed.
	CashToleranceAmount string `envconfig:"FORECOURT_CASH_TOLERANCE_AMOUNT" default:"10"`
	// DefaultTaxRatePercent applies when a sale does not carry its own rate.
	DefaultTaxRatePercent string `envconfig:"FORECOURT_DEFAULT_TAX_RATE_PERCENT" default:"0"`
}

// MeterTolerance parses the configured litre tolerance.
func (r ReconciliationConfig) MeterTolerance() (decimal.Decimal, error) {
	return decimal.NewFromString(r.MeterToleranceLitres)
}

// CashTolerance parses the configured cash tolerance.
func (r ReconciliationConfig) CashTolerance() (decimal.Decimal, error) {
	return decimal.NewFromString(r.CashToleranceAmount)
}

// DefaultTaxRate parses the configured tax rate percentage.
func (r ReconciliationConfig) DefaultTaxRate() (decimal.Decimal, error) {
	return decimal.NewFromString(r.DefaultTaxRatePercent)
}

type SyncConfig struct {
	RemoteBaseURL  string        `envconfig:"FORECOURT_SYNC_REMOTE_BASE_URL"`
	APIKey         string        `envconfig:"FORECOURT_SYNC_API_KEY"`
	BatchSize      int           `envconfig:"FORECOURT_SYNC_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"FORECOURT_SYNC_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"FORECOURT_SYNC_MAX_ATTEMPTS" default:"10"`
	BaseBackoff    time.Duration `envconfig:"FORECOURT_SYNC_BASE_BACKOFF" default:"2s"`
	MaxBackoff     time.Duration `envconfig:"FORECOURT_SYNC_MAX_BACKOFF" default:"5m"`
	PushTimeout    time.Duration `envconfig:"FORECOURT_SYNC_PUSH_TIMEOUT" default:"15s"`
	MetricsPort    string        `envconfig:"FORECOURT_SYNC_METRICS_PORT" default:"9102"`
}

type AuditConfig struct {
	// QueueSize bounds the in-memory buffer between business callers and the
	// audit writer goroutine. Appends beyond a full queue are dropped and
	// counted, never blocked on.
	QueueSize int `envconfig:"FORECOURT_AUDIT_QUEUE_SIZE" default:"256"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FORECOURT_AUTO_MIGRATE" default:"true"`
}
