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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	CutOff       CutOffConfig
	Ingest       IngestConfig
	Cron         CronConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.App.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MATREQ_APP_ENV" required:"true"`
	Port         string `envconfig:"MATREQ_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MATREQ_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"MATREQ_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"MATREQ_LOG_WARN_STACK" default:"false"`
	Timezone     string `envconfig:"MATREQ_TIMEZONE" default:"UTC"`
	CORSOrigins  string `envconfig:"MATREQ_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Location resolves the timezone used for cut-off evaluation.
func (a AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(a.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvTimezone, name, err)
	}
	return loc, nil
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	return splitList(a.CORSOrigins)
}

type DBConfig struct {
	DSN    string `envconfig:"MATREQ_DB_DSN"`
	Driver string `envconfig:"MATREQ_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MATREQ_DB_HOST"`
	LegacyPort     int    `envconfig:"MATREQ_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MATREQ_DB_USER"`
	LegacyPassword string `envconfig:"MATREQ_DB_PASSWORD"`
	LegacyName     string `envconfig:"MATREQ_DB_NAME"`
	LegacySSLMode  string `envconfig:"MATREQ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MATREQ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MATREQ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MATREQ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MATREQ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"MATREQ_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MATREQ_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MATREQ_REDIS_ADDR"`
	Password     string        `envconfig:"MATREQ_REDIS_PASSWORD"`
	DB           int           `envconfig:"MATREQ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MATREQ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MATREQ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MATREQ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MATREQ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MATREQ_REDIS_WRITE_TIMEOUT" default:"5s"`

	CatalogCacheTTL time.Duration `envconfig:"MATREQ_CATALOG_CACHE_TTL" default:"1h"`
	IdempotencyTTL  time.Duration `envconfig:"MATREQ_IDEMPOTENCY_TTL" default:"24h"`
}

// JWTConfig verifies tokens minted by the identity provider; this service never issues them.
type JWTConfig struct {
	Secret   string        `envconfig:"MATREQ_JWT_SECRET" required:"true"`
	Issuer   string        `envconfig:"MATREQ_JWT_ISSUER" required:"true"`
	Audience string        `envconfig:"MATREQ_JWT_AUDIENCE"`
	Leeway   time.Duration `envconfig:"MATREQ_JWT_LEEWAY" default:"30s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MATREQ_AUTO_MIGRATE" default:"false"`
}

// CutOffConfig holds the weekly submission windows. Days are comma separated
// weekday ordinals (0=Sunday), times are HH:MM in the app timezone.
type CutOffConfig struct {
	PerishableDays    string `envconfig:"MATREQ_CUTOFF_PERISHABLE_DAYS" default:"1,4"`
	PerishableTime    string `envconfig:"MATREQ_CUTOFF_PERISHABLE_TIME" default:"10:00"`
	ShelfStableDays   string `envconfig:"MATREQ_CUTOFF_SHELF_STABLE_DAYS" default:"2"`
	ShelfStableTime   string `envconfig:"MATREQ_CUTOFF_SHELF_STABLE_TIME" default:"12:00"`
	AdjustmentHours   int    `envconfig:"MATREQ_CUTOFF_ADJUSTMENT_HOURS" default:"0"`
	ReminderWindowMin int    `envconfig:"MATREQ_CUTOFF_REMINDER_WINDOW_MINUTES" default:"120"`
}

// ReminderWindow is how far ahead of a cut-off the reminder job looks.
func (c CutOffConfig) ReminderWindow() time.Duration {
	if c.ReminderWindowMin <= 0 {
		return 0
	}
	return time.Duration(c.ReminderWindowMin) * time.Minute
}

type IngestConfig struct {
	MaxUploadMB int `envconfig:"MATREQ_MAX_UPLOAD_MB" default:"20"`
}

func (i IngestConfig) MaxUploadBytes() int64 {
	if i.MaxUploadMB <= 0 {
		return 20 << 20
	}
	return int64(i.MaxUploadMB) << 20
}

type CronConfig struct {
	Interval time.Duration `envconfig:"MATREQ_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"MATREQ_CRON_LOCK_TTL" default:"0s"`
}

type PubSubConfig struct {
	ProjectID        string `envconfig:"MATREQ_GCP_PROJECT_ID"`
	RequisitionTopic string `envconfig:"MATREQ_PUBSUB_REQUISITION_TOPIC" default:"matreq-requisition-events"`
	// OrderedDelivery keys messages by aggregate so one table's events arrive
	// in commit order. The subscription must have ordering enabled too.
	OrderedDelivery bool `envconfig:"MATREQ_PUBSUB_ORDERED_DELIVERY" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MATREQ_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MATREQ_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MATREQ_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"MATREQ_OUTBOX_RETENTION_DAYS" default:"30"`
}

// Retention is the age after which published outbox rows are purged.
func (o OutboxConfig) Retention() time.Duration {
	if o.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(o.RetentionDays) * 24 * time.Hour
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

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
