package config

// EnvPrefix is handed to envconfig; explicit tags on every field fall back to
// the bare names below.
const EnvPrefix = "MATREQ"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "MATREQ_APP_ENV"
	EnvPort     = "MATREQ_APP_PORT"
	EnvLogLevel = "MATREQ_LOG_LEVEL"
	EnvTimezone = "MATREQ_TIMEZONE"

	EnvDBDSN  = "MATREQ_DB_DSN"
	EnvDBHost = "MATREQ_DB_HOST"
	EnvDBUser = "MATREQ_DB_USER"
	EnvDBName = "MATREQ_DB_NAME"

	EnvRedisURL = "MATREQ_REDIS_URL"

	EnvJWTSecret = "MATREQ_JWT_SECRET"
	EnvJWTIssuer = "MATREQ_JWT_ISSUER"

	EnvCutOffPerishableDays  = "MATREQ_CUTOFF_PERISHABLE_DAYS"
	EnvCutOffPerishableTime  = "MATREQ_CUTOFF_PERISHABLE_TIME"
	EnvCutOffAdjustmentHours = "MATREQ_CUTOFF_ADJUSTMENT_HOURS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
