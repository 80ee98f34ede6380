package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "aarvika"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "AARVIKA_DB_DSN"
	EnvDBHost = "AARVIKA_DB_HOST"
	EnvDBUser = "AARVIKA_DB_USER"
	EnvDBName = "AARVIKA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Snapshot      SnapshotConfig
	Autosave      AutosaveConfig
	Checkout      CheckoutConfig
	Razorpay      RazorpayConfig
	Mailer        MailerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = SQLiteMemoryDSN
		}
		return &cfg, nil
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"AARVIKA_APP_ENV" required:"true"`
	Port         string `envconfig:"AARVIKA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AARVIKA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AARVIKA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"AARVIKA_DB_DSN"`
	Driver string `envconfig:"AARVIKA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AARVIKA_DB_HOST"`
	LegacyPort     int    `envconfig:"AARVIKA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AARVIKA_DB_USER"`
	LegacyPassword string `envconfig:"AARVIKA_DB_PASSWORD"`
	LegacyName     string `envconfig:"AARVIKA_DB_NAME"`
	LegacySSLMode  string `envconfig:"AARVIKA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AARVIKA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AARVIKA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AARVIKA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AARVIKA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AARVIKA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AARVIKA_REDIS_ADDR"`
	Password     string        `envconfig:"AARVIKA_REDIS_PASSWORD"`
	DB           int           `envconfig:"AARVIKA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AARVIKA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AARVIKA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AARVIKA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AARVIKA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AARVIKA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"AARVIKA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"AARVIKA_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"AARVIKA_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"AARVIKA_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"AARVIKA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"AARVIKA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"AARVIKA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"AARVIKA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"AARVIKA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"AARVIKA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"AARVIKA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"AARVIKA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"AARVIKA_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"AARVIKA_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"AARVIKA_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// SQLiteMemoryDSN is the default datasource when UseSQLite is on and no DSN
// was provided.
const SQLiteMemoryDSN = "file::memory:?cache=shared"

// FeatureFlagsConfig toggles local-dev behavior. UseSQLite swaps the gorm
// driver to an in-memory sqlite database for schema-less smoke runs; the
// goose migrations are Postgres-only, so auto-migrate is skipped on sqlite.
type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"AARVIKA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"AARVIKA_AUTO_MIGRATE" default:"false"`
}

type SnapshotConfig struct {
	DefaultMaxAge time.Duration `envconfig:"AARVIKA_SNAPSHOT_DEFAULT_MAX_AGE" default:"24h"`
	KeyTTL        time.Duration `envconfig:"AARVIKA_SNAPSHOT_KEY_TTL" default:"168h"`
}

type AutosaveConfig struct {
	DebounceWindow time.Duration `envconfig:"AARVIKA_AUTOSAVE_DEBOUNCE" default:"1s"`
	SnapshotMaxAge time.Duration `envconfig:"AARVIKA_AUTOSAVE_MAX_AGE" default:"24h"`
}

type CheckoutConfig struct {
	StepMaxAge   time.Duration `envconfig:"AARVIKA_CHECKOUT_STEP_MAX_AGE" default:"2h"`
	MutationLock time.Duration `envconfig:"AARVIKA_CHECKOUT_MUTATION_LOCK" default:"10s"`
}

type RazorpayConfig struct {
	KeyID     string `envconfig:"AARVIKA_RAZORPAY_KEY_ID"`
	KeySecret string `envconfig:"AARVIKA_RAZORPAY_KEY_SECRET"`
	Env       string `envconfig:"AARVIKA_RAZORPAY_ENV" default:"test"`
	BaseURL   string `envconfig:"AARVIKA_RAZORPAY_BASE_URL"`
}

// Environment returns the normalized Razorpay environment (test/live).
func (r RazorpayConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(r.Env))
	if env == "" {
		return "test"
	}
	return env
}

type MailerConfig struct {
	FunctionURL string `envconfig:"AARVIKA_MAILER_FUNCTION_URL"`
	APIKey      string `envconfig:"AARVIKA_MAILER_API_KEY"`
	FromEmail   string `envconfig:"AARVIKA_MAILER_FROM_EMAIL" default:"orders@aarvika.in"`
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
