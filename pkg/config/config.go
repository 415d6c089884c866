package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "ELIB_DB_DSN"
	EnvDBHost = "ELIB_DB_HOST"
	EnvDBUser = "ELIB_DB_USER"
	EnvDBName = "ELIB_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Lending       LendingConfig
	Storage       StorageConfig
	GCP           GCPConfig
	Cron          CronConfig
	AuthRateLimit AuthRateLimitConfig
	Features      FeatureFlagsConfig
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
	Env          string `envconfig:"ELIB_APP_ENV" required:"true"`
	Port         string `envconfig:"ELIB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ELIB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ELIB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ELIB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ELIB_DB_DSN"`
	Driver string `envconfig:"ELIB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ELIB_DB_HOST"`
	LegacyPort     int    `envconfig:"ELIB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ELIB_DB_USER"`
	LegacyPassword string `envconfig:"ELIB_DB_PASSWORD"`
	LegacyName     string `envconfig:"ELIB_DB_NAME"`
	LegacySSLMode  string `envconfig:"ELIB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ELIB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ELIB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ELIB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ELIB_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"ELIB_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ELIB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ELIB_REDIS_ADDR"`
	Password     string        `envconfig:"ELIB_REDIS_PASSWORD"`
	DB           int           `envconfig:"ELIB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ELIB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ELIB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ELIB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ELIB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ELIB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"ELIB_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"ELIB_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"ELIB_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"ELIB_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ELIB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ELIB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ELIB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ELIB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ELIB_ARGON_KEY_LEN" default:"32"`
}

// LendingConfig captures the borrowing lifecycle policy knobs.
type LendingConfig struct {
	LoanPeriodDays       int    `envconfig:"ELIB_LOAN_PERIOD_DAYS" default:"14"`
	ExtensionDays        int    `envconfig:"ELIB_EXTENSION_DAYS" default:"7"`
	MaxExtensions        int    `envconfig:"ELIB_MAX_EXTENSIONS" default:"2"`
	FinePerDay           string `envconfig:"ELIB_FINE_PER_DAY" default:"0.50"`
	ConversationIdleDays int    `envconfig:"ELIB_CONVERSATION_IDLE_DAYS" default:"30"`
}

// LoanPeriod returns the standard loan duration.
func (l LendingConfig) LoanPeriod() time.Duration {
	return time.Duration(l.LoanPeriodDays) * 24 * time.Hour
}

// ExtensionPeriod returns the duration added by a single extension.
func (l LendingConfig) ExtensionPeriod() time.Duration {
	return time.Duration(l.ExtensionDays) * 24 * time.Hour
}

type StorageConfig struct {
	BucketName        string        `envconfig:"ELIB_GCS_BUCKET_NAME"`
	UploadURLExpiry   time.Duration `envconfig:"ELIB_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"ELIB_GCS_DOWNLOAD_URL_EXPIRY" default:"1h"`
	MaxUploadMB       int           `envconfig:"ELIB_MAX_UPLOAD_MB" default:"50"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ELIB_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ELIB_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"ELIB_CRON_INTERVAL" default:"24h"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"ELIB_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"ELIB_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"ELIB_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"ELIB_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"ELIB_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"ELIB_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AllowAdminBootstrap bool `envconfig:"ELIB_FEATURE_ADMIN_BOOTSTRAP" default:"false"`
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
