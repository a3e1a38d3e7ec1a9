package config

const (
	EnvPrefix = "BNB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	StorageDriverGCS   = "gcs"
	StorageDriverMinIO = "minio"
	StorageDriverNone  = "none"

	PublishModeN8N    = "n8n"
	PublishModeDirect = "direct"
)

const (
	EnvAppEnv           = "BNB_APP_ENV"
	EnvPort             = "BNB_APP_PORT"
	EnvBackendURL       = "BNB_BACKEND_URL"
	EnvDBDSN            = "BNB_DB_DSN"
	EnvDBHost           = "BNB_DB_HOST"
	EnvDBUser           = "BNB_DB_USER"
	EnvDBName           = "BNB_DB_NAME"
	EnvUseSQLite        = "BNB_USE_SQLITE"
	EnvSQLitePath       = "BNB_SQLITE_PATH"
	EnvJWTSecret        = "BNB_JWT_SECRET"
	EnvJWTExpMins       = "BNB_JWT_EXPIRATION_MINUTES"
	EnvStorageDriver    = "BNB_STORAGE_DRIVER"
	EnvGCPProjectID     = "BNB_GCP_PROJECT_ID"
	EnvGCSBucket        = "BNB_GCS_BUCKET_NAME"
	EnvMinIOEndpoint    = "BNB_MINIO_ENDPOINT"
	EnvMinIOBucket      = "BNB_MINIO_BUCKET"
	EnvPublishMode      = "BNB_PUBLISH_MODE"
	EnvEbayClientID     = "BNB_EBAY_CLIENT_ID"
	EnvEbayClientSecret = "BNB_EBAY_CLIENT_SECRET"
	EnvPubSubEnabled    = "BNB_PUBSUB_ENABLED"
	EnvCORSOrigins      = "BNB_CORS_ORIGINS"
	EnvEnvFile          = "BNB_ENV_FILE"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
