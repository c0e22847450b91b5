package config

const (
	EnvPrefix = "STORETRAIL"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DefaultSQLiteDSN = "file:storetrail.db?_foreign_keys=on"
)

const (
	EnvAppEnv   = "STORETRAIL_APP_ENV"
	EnvPort     = "STORETRAIL_APP_PORT"
	EnvLogLevel = "STORETRAIL_LOG_LEVEL"

	EnvDBDSN    = "STORETRAIL_DB_DSN"
	EnvDBDriver = "STORETRAIL_DB_DRIVER"
	EnvDBHost   = "STORETRAIL_DB_HOST"
	EnvDBPort   = "STORETRAIL_DB_PORT"
	EnvDBUser   = "STORETRAIL_DB_USER"
	EnvDBPass   = "STORETRAIL_DB_PASSWORD"
	EnvDBName   = "STORETRAIL_DB_NAME"

	EnvRedisURL = "STORETRAIL_REDIS_URL"

	EnvJWTSecret              = "STORETRAIL_JWT_SECRET"
	EnvJWTIssuer              = "STORETRAIL_JWT_ISSUER"
	EnvJWTExpMins             = "STORETRAIL_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "STORETRAIL_REFRESH_TOKEN_TTL_MINUTES"

	EnvOwnerOpenID = "STORETRAIL_OWNER_OPEN_ID"

	EnvCheckInMaxPhotoBytes    = "STORETRAIL_CHECKIN_MAX_PHOTO_BYTES"
	EnvCheckInRateLimitWindow  = "STORETRAIL_CHECKIN_RATE_LIMIT_WINDOW"
	EnvCheckInRateLimitPerUser = "STORETRAIL_CHECKIN_RATE_LIMIT_PER_USER"

	EnvCORSAllowedOrigins = "STORETRAIL_CORS_ALLOWED_ORIGINS"

	EnvGCPProjectID = "STORETRAIL_GCP_PROJECT_ID"
	EnvGCSBucket    = "STORETRAIL_GCS_BUCKET_NAME"

	EnvPubSubCheckInsTopic = "STORETRAIL_PUBSUB_CHECKINS_TOPIC"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
