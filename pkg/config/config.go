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
	Device       DeviceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Remote       RemoteConfig
	Queue        QueueConfig
	Fiscal       FiscalConfig
	Outbox       OutboxConfig
	WriteLimit   WriteLimitConfig
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
	Env          string `envconfig:"COMPTOIR_APP_ENV" required:"true"`
	Port         string `envconfig:"COMPTOIR_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"COMPTOIR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COMPTOIR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// DeviceConfig identifies a POS device running the sync core.
type DeviceConfig struct {
	RestaurantID string `envconfig:"COMPTOIR_RESTAURANT_ID"`
	DeviceID     string `envconfig:"COMPTOIR_DEVICE_ID"`
	Role         string `envconfig:"COMPTOIR_DEVICE_ROLE" default:"primary"`
	Token        string `envconfig:"COMPTOIR_DEVICE_TOKEN"`
	LocalPort    string `envconfig:"COMPTOIR_DEVICE_PORT" default:"8090"`
	LocalDBPath  string `envconfig:"COMPTOIR_DEVICE_DB_PATH" default:"comptoir.db"`
}

// IsMobile reports whether the device runs the permissive offline profile.
func (d DeviceConfig) IsMobile() bool {
	return strings.EqualFold(d.Role, DeviceRoleMobile)
}

type DBConfig struct {
	DSN    string `envconfig:"COMPTOIR_DB_DSN"`
	Driver string `envconfig:"COMPTOIR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COMPTOIR_DB_HOST"`
	LegacyPort     int    `envconfig:"COMPTOIR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COMPTOIR_DB_USER"`
	LegacyPassword string `envconfig:"COMPTOIR_DB_PASSWORD"`
	LegacyName     string `envconfig:"COMPTOIR_DB_NAME"`
	LegacySSLMode  string `envconfig:"COMPTOIR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COMPTOIR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COMPTOIR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COMPTOIR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COMPTOIR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COMPTOIR_REDIS_URL"`
	Address      string        `envconfig:"COMPTOIR_REDIS_ADDR"`
	Password     string        `envconfig:"COMPTOIR_REDIS_PASSWORD"`
	DB           int           `envconfig:"COMPTOIR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COMPTOIR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COMPTOIR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COMPTOIR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COMPTOIR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COMPTOIR_REDIS_WRITE_TIMEOUT" default:"5s"`
	SnapshotTTL  time.Duration `envconfig:"COMPTOIR_REDIS_SNAPSHOT_TTL" default:"10m"`
}

type JWTConfig struct {
	Secret            string `envconfig:"COMPTOIR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"COMPTOIR_JWT_ISSUER" default:"comptoir"`
	ExpirationMinutes int    `envconfig:"COMPTOIR_JWT_EXPIRATION_MINUTES" default:"43200"`
}

// TokenTTL returns the device token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"COMPTOIR_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"COMPTOIR_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"COMPTOIR_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"COMPTOIR_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"COMPTOIR_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SnapshotTopic        string `envconfig:"COMPTOIR_PUBSUB_SNAPSHOT_TOPIC" default:"cmt-snapshot-events"`
	SnapshotSubscription string `envconfig:"COMPTOIR_PUBSUB_SNAPSHOT_SUBSCRIPTION"`
	OrdersTopic          string `envconfig:"COMPTOIR_PUBSUB_ORDERS_TOPIC" default:"cmt-order-events"`
}

// RemoteConfig points a device at the remote state service.
type RemoteConfig struct {
	BaseURL        string        `envconfig:"COMPTOIR_REMOTE_BASE_URL"`
	RequestTimeout time.Duration `envconfig:"COMPTOIR_REMOTE_REQUEST_TIMEOUT" default:"10s"`
	ProbeTimeout   time.Duration `envconfig:"COMPTOIR_REMOTE_PROBE_TIMEOUT" default:"3s"`
	ProbeInterval  time.Duration `envconfig:"COMPTOIR_REMOTE_PROBE_INTERVAL" default:"5s"`
}

// QueueConfig bounds the offline action queue.
type QueueConfig struct {
	MaxAttempts int `envconfig:"COMPTOIR_QUEUE_MAX_ATTEMPTS" default:"3"`
}

type FiscalConfig struct {
	ArchiveURL     string        `envconfig:"COMPTOIR_FISCAL_ARCHIVE_URL"`
	RequestTimeout time.Duration `envconfig:"COMPTOIR_FISCAL_REQUEST_TIMEOUT" default:"5s"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"COMPTOIR_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"COMPTOIR_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"COMPTOIR_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// WriteLimitConfig caps how often one device may write the state document.
type WriteLimitConfig struct {
	Window time.Duration `envconfig:"COMPTOIR_WRITE_LIMIT_WINDOW" default:"1s"`
	Limit  int           `envconfig:"COMPTOIR_WRITE_LIMIT_PER_DEVICE" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if strings.EqualFold(db.Driver, DriverSQLite) {
		// SQLite callers fall back to a file path; nothing to assemble.
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
	u := url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:     db.LegacyName,
		RawQuery: "sslmode=" + db.LegacySSLMode,
	}
	db.DSN = u.String()
	return nil
}
