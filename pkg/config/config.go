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
	Auth         AuthConfig
	CheckIn      CheckInConfig
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	GCS          GCSConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
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
	if err := cfg.CheckIn.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AppConfig carries process-wide settings. ShutdownTimeout bounds graceful
// HTTP shutdown.
type AppConfig struct {
	Env             string        `envconfig:"STORETRAIL_APP_ENV" required:"true"`
	Port            string        `envconfig:"STORETRAIL_APP_PORT" required:"true"`
	LogLevel        string        `envconfig:"STORETRAIL_LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"STORETRAIL_LOG_FORMAT" default:"json"`
	LogWarnStack    bool          `envconfig:"STORETRAIL_LOG_WARN_STACK" default:"false"`
	ShutdownTimeout time.Duration `envconfig:"STORETRAIL_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STORETRAIL_DB_DSN"`
	Driver string `envconfig:"STORETRAIL_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STORETRAIL_DB_HOST"`
	Port     int    `envconfig:"STORETRAIL_DB_PORT" default:"5432"`
	User     string `envconfig:"STORETRAIL_DB_USER"`
	Password string `envconfig:"STORETRAIL_DB_PASSWORD"`
	Name     string `envconfig:"STORETRAIL_DB_NAME"`
	SSLMode  string `envconfig:"STORETRAIL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STORETRAIL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STORETRAIL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STORETRAIL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STORETRAIL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the local sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"STORETRAIL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STORETRAIL_REDIS_ADDR"`
	Password     string        `envconfig:"STORETRAIL_REDIS_PASSWORD"`
	DB           int           `envconfig:"STORETRAIL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STORETRAIL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STORETRAIL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STORETRAIL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STORETRAIL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STORETRAIL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"STORETRAIL_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"STORETRAIL_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"STORETRAIL_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"STORETRAIL_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// AuthConfig covers identity-provider settings.
type AuthConfig struct {
	// OwnerOpenID is promoted to the admin role on sign-in.
	OwnerOpenID string `envconfig:"STORETRAIL_OWNER_OPEN_ID"`
}

type CheckInConfig struct {
	MaxPhotoBytes    int           `envconfig:"STORETRAIL_CHECKIN_MAX_PHOTO_BYTES" default:"5242880"`
	RateLimitWindow  time.Duration `envconfig:"STORETRAIL_CHECKIN_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitPerUser int           `envconfig:"STORETRAIL_CHECKIN_RATE_LIMIT_PER_USER" default:"10"`
	IdempotencyTTL   time.Duration `envconfig:"STORETRAIL_CHECKIN_IDEMPOTENCY_TTL" default:"24h"`
}

func (c CheckInConfig) validate() error {
	if c.MaxPhotoBytes <= 0 {
		return fmt.Errorf("%s must be positive", EnvCheckInMaxPhotoBytes)
	}
	if c.RateLimitPerUser <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("%s and %s must be positive", EnvCheckInRateLimitPerUser, EnvCheckInRateLimitWindow)
	}
	return nil
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"STORETRAIL_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STORETRAIL_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"STORETRAIL_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STORETRAIL_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"STORETRAIL_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STORETRAIL_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string        `envconfig:"STORETRAIL_GCS_BUCKET_NAME" required:"true"`
	PublicBaseURL string        `envconfig:"STORETRAIL_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	UploadTimeout time.Duration `envconfig:"STORETRAIL_GCS_UPLOAD_TIMEOUT" default:"30s"`
}

type PubSubConfig struct {
	CheckInsTopic         string `envconfig:"STORETRAIL_PUBSUB_CHECKINS_TOPIC" default:"st-checkin-events"`
	AnalyticsSubscription string `envconfig:"STORETRAIL_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"st-checkin-analytics"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"STORETRAIL_BIGQUERY_DATASET" default:"storetrail"`
	StoreVisitsTable string `envconfig:"STORETRAIL_BIGQUERY_STORE_VISITS_TABLE" default:"store_visits"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STORETRAIL_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STORETRAIL_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STORETRAIL_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// PollInterval converts the configured poll interval to a duration.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = DefaultSQLiteDSN
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if parts[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
