package config

const (
	EnvPrefix = "MKS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	NotificationTransportHTTP   = "http"
	NotificationTransportPubSub = "pubsub"
)

const (
	EnvAppEnv      = "MKS_APP_ENV"
	EnvPort        = "MKS_APP_PORT"
	EnvLogLevel    = "MKS_LOG_LEVEL"
	EnvFrontendURL = "MKS_FRONTEND_URL"

	EnvDBDSN  = "MKS_DB_DSN"
	EnvDBHost = "MKS_DB_HOST"
	EnvDBUser = "MKS_DB_USER"
	EnvDBName = "MKS_DB_NAME"

	EnvRedisURL  = "MKS_REDIS_URL"
	EnvJWTSecret = "MKS_JWT_SECRET"

	EnvAdminPasscode     = "MKS_ADMIN_PASSCODE"
	EnvAdminPasscodeHash = "MKS_ADMIN_PASSCODE_HASH"

	EnvNotificationsTransport = "MKS_NOTIFICATIONS_TRANSPORT"
	EnvEmailServerURL         = "MKS_EMAIL_SERVER_URL"

	EnvGCSBucket        = "MKS_GCS_BUCKET_NAME"
	EnvGCSPublicBaseURL = "MKS_GCS_PUBLIC_BASE_URL"

	EnvMaintenanceGracePeriod = "MKS_MAINTENANCE_GRACE_PERIOD"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
