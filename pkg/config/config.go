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
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Admin         AdminConfig
	Password      PasswordConfig
	Google        GoogleConfig
	Notifications NotificationsConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	Mail          MailConfig
	Maintenance   MaintenanceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Notifications.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadPassword reads only the Argon2id cost settings, for tooling that hashes
// the admin passcode without a full deployment environment.
func LoadPassword() (PasswordConfig, error) {
	var cfg PasswordConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return PasswordConfig{}, fmt.Errorf("parsing password config: %w", err)
	}
	return cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MKS_APP_ENV" required:"true"`
	Port         string `envconfig:"MKS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MKS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MKS_LOG_WARN_STACK" default:"false"`
	FrontendURL  string `envconfig:"MKS_FRONTEND_URL" default:"https://mksagencies.com"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MKS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MKS_DB_DSN"`
	Driver string `envconfig:"MKS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"MKS_DB_HOST"`
	Port     int    `envconfig:"MKS_DB_PORT" default:"5432"`
	User     string `envconfig:"MKS_DB_USER"`
	Password string `envconfig:"MKS_DB_PASSWORD"`
	Name     string `envconfig:"MKS_DB_NAME"`
	SSLMode  string `envconfig:"MKS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MKS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MKS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MKS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MKS_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"MKS_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MKS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MKS_REDIS_ADDR"`
	Password     string        `envconfig:"MKS_REDIS_PASSWORD"`
	DB           int           `envconfig:"MKS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MKS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MKS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MKS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MKS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MKS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"MKS_JWT_SECRET" required:"true"`
}

// AdminConfig holds the shared admin passcode. PasscodeHash, when set, takes
// precedence and must be an argon2id encoded hash.
type AdminConfig struct {
	Passcode     string `envconfig:"MKS_ADMIN_PASSCODE"`
	PasscodeHash string `envconfig:"MKS_ADMIN_PASSCODE_HASH"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MKS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MKS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MKS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MKS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MKS_ARGON_KEY_LEN" default:"32"`
}

type GoogleConfig struct {
	ClientID     string        `envconfig:"MKS_GOOGLE_CLIENT_ID"`
	TokenInfoURL string        `envconfig:"MKS_GOOGLE_TOKENINFO_URL" default:"https://oauth2.googleapis.com/tokeninfo"`
	Timeout      time.Duration `envconfig:"MKS_GOOGLE_TIMEOUT" default:"10s"`
}

type NotificationsConfig struct {
	Transport      string        `envconfig:"MKS_NOTIFICATIONS_TRANSPORT" default:"http"`
	EmailServerURL string        `envconfig:"MKS_EMAIL_SERVER_URL"`
	Timeout        time.Duration `envconfig:"MKS_NOTIFICATIONS_TIMEOUT" default:"10s"`
	QueueSize      int           `envconfig:"MKS_NOTIFICATIONS_QUEUE_SIZE" default:"256"`
	Workers        int           `envconfig:"MKS_NOTIFICATIONS_WORKERS" default:"4"`
}

func (n NotificationsConfig) UsePubSub() bool {
	return strings.EqualFold(strings.TrimSpace(n.Transport), NotificationTransportPubSub)
}

func (n NotificationsConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(n.Transport)) {
	case NotificationTransportHTTP, NotificationTransportPubSub:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvNotificationsTransport, NotificationTransportHTTP, NotificationTransportPubSub)
	}
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MKS_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"MKS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MKS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"MKS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MKS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"MKS_GCS_BUCKET_NAME"`
	PublicBaseURL string `envconfig:"MKS_GCS_PUBLIC_BASE_URL"`
}

// PublicBase returns the URL prefix product images are served from.
func (g GCSConfig) PublicBase() string {
	if base := strings.TrimRight(strings.TrimSpace(g.PublicBaseURL), "/"); base != "" {
		return base
	}
	return "https://storage.googleapis.com/" + g.BucketName
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"MKS_PUBSUB_NOTIFICATION_TOPIC" default:"mks-notification-events"`
	NotificationSubscription string `envconfig:"MKS_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type MailConfig struct {
	Port         string `envconfig:"MKS_MAILER_PORT" default:"3001"`
	SMTPHost     string `envconfig:"MKS_SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort     int    `envconfig:"MKS_SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"MKS_SMTP_USER"`
	SMTPPassword string `envconfig:"MKS_SMTP_PASSWORD"`
	FromName     string `envconfig:"MKS_MAIL_FROM_NAME" default:"MKS Agencies"`
	AdminEmail   string `envconfig:"MKS_ADMIN_EMAIL"`
}

// AdminRecipient falls back to the sending account when no admin address is set.
func (m MailConfig) AdminRecipient() string {
	if m.AdminEmail != "" {
		return m.AdminEmail
	}
	return m.SMTPUser
}

type MaintenanceConfig struct {
	GracePeriod  time.Duration `envconfig:"MKS_MAINTENANCE_GRACE_PERIOD" default:"24h"`
	MaxDeletions int           `envconfig:"MKS_MAINTENANCE_MAX_DELETIONS" default:"100"`
	RunHourUTC   int           `envconfig:"MKS_MAINTENANCE_RUN_HOUR_UTC" default:"2"`
	RunMinuteUTC int           `envconfig:"MKS_MAINTENANCE_RUN_MINUTE_UTC" default:"30"`
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
