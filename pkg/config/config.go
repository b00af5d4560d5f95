package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "p2pdesk"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "P2PDESK_DB_DSN"
	EnvDBHost = "P2PDESK_DB_HOST"
	EnvDBUser = "P2PDESK_DB_USER"
	EnvDBName = "P2PDESK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Binance      BinanceConfig
	RestTimer    RestTimerConfig
	Cron         CronConfig
	AuthLimits   AuthRateLimitConfig
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
	Env          string `envconfig:"P2PDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"P2PDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"P2PDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"P2PDESK_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"P2PDESK_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"P2PDESK_DB_DSN"`
	Driver string `envconfig:"P2PDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"P2PDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"P2PDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"P2PDESK_DB_USER"`
	LegacyPassword string `envconfig:"P2PDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"P2PDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"P2PDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"P2PDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"P2PDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"P2PDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"P2PDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"P2PDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"P2PDESK_REDIS_ADDR"`
	Password     string        `envconfig:"P2PDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"P2PDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"P2PDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"P2PDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"P2PDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"P2PDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"P2PDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"P2PDESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"P2PDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"P2PDESK_JWT_EXPIRATION_MINUTES" default:"480"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"P2PDESK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"P2PDESK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"P2PDESK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"P2PDESK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"P2PDESK_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"P2PDESK_AUTO_MIGRATE" default:"false"`
}

type BinanceConfig struct {
	APIKey     string        `envconfig:"P2PDESK_BINANCE_API_KEY" required:"true"`
	APISecret  string        `envconfig:"P2PDESK_BINANCE_API_SECRET" required:"true"`
	BaseURL    string        `envconfig:"P2PDESK_BINANCE_BASE_URL" default:"https://api.binance.com"`
	RecvWindow time.Duration `envconfig:"P2PDESK_BINANCE_RECV_WINDOW" default:"5s"`
	Timeout    time.Duration `envconfig:"P2PDESK_BINANCE_TIMEOUT" default:"10s"`
}

type RestTimerConfig struct {
	DurationMinutes int           `envconfig:"P2PDESK_REST_TIMER_DURATION_MINUTES" default:"60"`
	StartLockTTL    time.Duration `envconfig:"P2PDESK_REST_TIMER_START_LOCK_TTL" default:"30s"`
}

// Duration returns the configured rest window as a time.Duration.
func (r RestTimerConfig) Duration() time.Duration {
	if r.DurationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(r.DurationMinutes) * time.Minute
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"P2PDESK_LOGIN_RATE_WINDOW" default:"1m"`
	LoginIPLimit    int           `envconfig:"P2PDESK_LOGIN_RATE_IP_LIMIT" default:"10"`
	LoginEmailLimit int           `envconfig:"P2PDESK_LOGIN_RATE_EMAIL_LIMIT" default:"5"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"P2PDESK_CRON_INTERVAL" default:"1m"`
	LockTTL  time.Duration `envconfig:"P2PDESK_CRON_LOCK_TTL" default:"5m"`
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
