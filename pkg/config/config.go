package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	FeatureFlags  FeatureFlagsConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	MediaLimit    MediaRateLimitConfig
	CORS          CORSConfig
	Storage       StorageConfig
	GCP           GCPConfig
	GCS           GCSConfig
	MinIO         MinIOConfig
	Upload        UploadConfig
	N8N           N8NConfig
	Publish       PublishConfig
	Ebay          EbayConfig
	Webhook       WebhookConfig
	PubSub        PubSubConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = cfg.DB.SQLitePath
		}
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case StorageDriverGCS:
		if c.GCS.BucketName == "" {
			return fmt.Errorf("%s is required when storage driver is gcs", EnvGCSBucket)
		}
	case StorageDriverMinIO:
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("%s and %s are required when storage driver is minio", EnvMinIOEndpoint, EnvMinIOBucket)
		}
	case StorageDriverNone:
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}

	switch strings.ToLower(c.Publish.Mode) {
	case PublishModeN8N:
	case PublishModeDirect:
		if c.Ebay.ClientID == "" || c.Ebay.ClientSecret == "" {
			return fmt.Errorf("%s and %s are required when publish mode is direct", EnvEbayClientID, EnvEbayClientSecret)
		}
	default:
		return fmt.Errorf("unsupported publish mode %q", c.Publish.Mode)
	}

	if c.PubSub.Enabled && c.GCP.ProjectID == "" {
		return fmt.Errorf("%s is required when pubsub is enabled", EnvGCPProjectID)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"BNB_APP_ENV" required:"true"`
	Port         string `envconfig:"BNB_APP_PORT" default:"8000"`
	LogLevel     string `envconfig:"BNB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BNB_LOG_WARN_STACK" default:"false"`
	BackendURL   string `envconfig:"BNB_BACKEND_URL" default:"http://localhost:8000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"BNB_DB_DSN"`
	Driver     string `envconfig:"BNB_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"BNB_SQLITE_PATH" default:"bnb.db"`

	Host     string `envconfig:"BNB_DB_HOST"`
	Port     int    `envconfig:"BNB_DB_PORT" default:"5432"`
	User     string `envconfig:"BNB_DB_USER"`
	Password string `envconfig:"BNB_DB_PASSWORD"`
	Name     string `envconfig:"BNB_DB_NAME"`
	SSLMode  string `envconfig:"BNB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BNB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BNB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BNB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BNB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BNB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BNB_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BNB_REDIS_URL"`
	Address      string        `envconfig:"BNB_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"BNB_REDIS_PASSWORD"`
	DB           int           `envconfig:"BNB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BNB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BNB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BNB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BNB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BNB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BNB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BNB_JWT_ISSUER" default:"bnb-api"`
	ExpirationMinutes int    `envconfig:"BNB_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// AccessTokenTTL returns the configured access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BNB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BNB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BNB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BNB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BNB_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"BNB_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"BNB_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"BNB_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"BNB_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"BNB_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"BNB_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// MediaRateLimitConfig caps generate-media calls per seller. A zero limit disables it.
type MediaRateLimitConfig struct {
	Window    time.Duration `envconfig:"BNB_MEDIA_RATE_LIMIT_WINDOW" default:"1h"`
	UserLimit int           `envconfig:"BNB_MEDIA_RATE_LIMIT_USER_LIMIT" default:"30"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"BNB_CORS_ORIGINS" default:"http://localhost:3000"`
}

type StorageConfig struct {
	Driver        string `envconfig:"BNB_STORAGE_DRIVER" default:"gcs"`
	Folder        string `envconfig:"BNB_STORAGE_FOLDER" default:"listings"`
	PublicBaseURL string `envconfig:"BNB_STORAGE_PUBLIC_BASE_URL"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BNB_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"BNB_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BNB_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"BNB_GCS_BUCKET_NAME"`
}

type MinIOConfig struct {
	Endpoint  string `envconfig:"BNB_MINIO_ENDPOINT"`
	AccessKey string `envconfig:"BNB_MINIO_ACCESS_KEY"`
	SecretKey string `envconfig:"BNB_MINIO_SECRET_KEY"`
	Bucket    string `envconfig:"BNB_MINIO_BUCKET"`
	Region    string `envconfig:"BNB_MINIO_REGION" default:"us-east-1"`
	UseSSL    bool   `envconfig:"BNB_MINIO_USE_SSL" default:"false"`
}

type UploadConfig struct {
	MaxFileBytes int64 `envconfig:"BNB_UPLOAD_MAX_FILE_BYTES" default:"10485760"`
	MaxFiles     int   `envconfig:"BNB_UPLOAD_MAX_FILES" default:"10"`
	Concurrency  int   `envconfig:"BNB_UPLOAD_CONCURRENCY" default:"4"`
}

type N8NConfig struct {
	MediaWebhookURL string        `envconfig:"BNB_N8N_MEDIA_WEBHOOK_URL"`
	EbayWebhookURL  string        `envconfig:"BNB_N8N_EBAY_WEBHOOK_URL"`
	MediaTimeout    time.Duration `envconfig:"BNB_N8N_MEDIA_TIMEOUT" default:"60s"`
	EbayTimeout     time.Duration `envconfig:"BNB_N8N_EBAY_TIMEOUT" default:"30s"`
}

type PublishConfig struct {
	Mode      string `envconfig:"BNB_PUBLISH_MODE" default:"n8n"`
	Workers   int    `envconfig:"BNB_PUBLISH_WORKERS" default:"2"`
	QueueSize int    `envconfig:"BNB_PUBLISH_QUEUE_SIZE" default:"64"`
}

type EbayConfig struct {
	ClientID            string        `envconfig:"BNB_EBAY_CLIENT_ID"`
	ClientSecret        string        `envconfig:"BNB_EBAY_CLIENT_SECRET"`
	Sandbox             bool          `envconfig:"BNB_EBAY_SANDBOX" default:"true"`
	MarketplaceID       string        `envconfig:"BNB_EBAY_MARKETPLACE_ID" default:"EBAY_US"`
	Currency            string        `envconfig:"BNB_EBAY_CURRENCY" default:"USD"`
	FulfillmentPolicyID string        `envconfig:"BNB_EBAY_FULFILLMENT_POLICY_ID"`
	PaymentPolicyID     string        `envconfig:"BNB_EBAY_PAYMENT_POLICY_ID"`
	ReturnPolicyID      string        `envconfig:"BNB_EBAY_RETURN_POLICY_ID"`
	MerchantLocationKey string        `envconfig:"BNB_EBAY_MERCHANT_LOCATION_KEY"`
	RequestTimeout      time.Duration `envconfig:"BNB_EBAY_REQUEST_TIMEOUT" default:"30s"`
}

// APIBaseURL returns the REST host for the configured environment.
func (e EbayConfig) APIBaseURL() string {
	if e.Sandbox {
		return "https://api.sandbox.ebay.com"
	}
	return "https://api.ebay.com"
}

// ItemBaseURL returns the public item page host for the configured environment.
func (e EbayConfig) ItemBaseURL() string {
	if e.Sandbox {
		return "https://www.sandbox.ebay.com/itm/"
	}
	return "https://www.ebay.com/itm/"
}

type WebhookConfig struct {
	Secret string `envconfig:"BNB_WEBHOOK_SECRET"`
}

type PubSubConfig struct {
	Enabled            bool   `envconfig:"BNB_PUBSUB_ENABLED" default:"false"`
	ListingEventsTopic string `envconfig:"BNB_PUBSUB_LISTING_EVENTS_TOPIC" default:"bnb-listing-events"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"BNB_CRON_INTERVAL" default:"1m"`
	LockTTL           time.Duration `envconfig:"BNB_CRON_LOCK_TTL" default:"5m"`
	GeneratingTimeout time.Duration `envconfig:"BNB_CRON_GENERATING_TIMEOUT" default:"30m"`
	PublishingTimeout time.Duration `envconfig:"BNB_CRON_PUBLISHING_TIMEOUT" default:"15m"`
	MetricsAddr       string        `envconfig:"BNB_CRON_METRICS_ADDR" default:":9091"`

	// Jobs limits the worker to the named jobs; empty runs all of them.
	Jobs []string `envconfig:"BNB_CRON_JOBS"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if values[env] == "" {
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
