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
	Auth         AuthConfig
	Razorpay     RazorpayConfig
	Twilio       TwilioConfig
	Sendgrid     SendgridConfig
	Checkout     CheckoutConfig
	Tracing      TracingConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ROOMEZES_APP_ENV" required:"true"`
	Port         string `envconfig:"ROOMEZES_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ROOMEZES_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ROOMEZES_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"ROOMEZES_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ROOMEZES_DB_DSN"`
	Driver string `envconfig:"ROOMEZES_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"ROOMEZES_DB_HOST"`
	Port     int    `envconfig:"ROOMEZES_DB_PORT" default:"5432"`
	User     string `envconfig:"ROOMEZES_DB_USER"`
	Password string `envconfig:"ROOMEZES_DB_PASSWORD"`
	Name     string `envconfig:"ROOMEZES_DB_NAME"`
	SSLMode  string `envconfig:"ROOMEZES_DB_SSLMODE" default:"require"`

	MaxOpenConns    int           `envconfig:"ROOMEZES_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ROOMEZES_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ROOMEZES_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ROOMEZES_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the service runs against a local sqlite file instead of Postgres.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"ROOMEZES_REDIS_URL"`
	Address      string        `envconfig:"ROOMEZES_REDIS_ADDR"`
	Password     string        `envconfig:"ROOMEZES_REDIS_PASSWORD"`
	DB           int           `envconfig:"ROOMEZES_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ROOMEZES_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ROOMEZES_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ROOMEZES_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ROOMEZES_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ROOMEZES_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// AuthConfig holds the shared secret used to verify access tokens minted by the auth provider.
type AuthConfig struct {
	JWTSecret string        `envconfig:"ROOMEZES_AUTH_JWT_SECRET" required:"true"`
	Issuer    string        `envconfig:"ROOMEZES_AUTH_ISSUER" required:"true"`
	Audience  string        `envconfig:"ROOMEZES_AUTH_AUDIENCE" default:"authenticated"`
	TokenTTL  time.Duration `envconfig:"ROOMEZES_AUTH_TOKEN_TTL" default:"1h"`
}

type RazorpayConfig struct {
	KeyID     string        `envconfig:"ROOMEZES_RAZORPAY_KEY_ID" required:"true"`
	KeySecret string        `envconfig:"ROOMEZES_RAZORPAY_KEY_SECRET" required:"true"`
	BaseURL   string        `envconfig:"ROOMEZES_RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`
	Timeout   time.Duration `envconfig:"ROOMEZES_RAZORPAY_TIMEOUT" default:"10s"`
}

// TwilioConfig is optional: an empty account degrades vendor notifications to log lines.
type TwilioConfig struct {
	AccountSID string        `envconfig:"ROOMEZES_TWILIO_ACCOUNT_SID"`
	AuthToken  string        `envconfig:"ROOMEZES_TWILIO_AUTH_TOKEN"`
	From       string        `envconfig:"ROOMEZES_TWILIO_FROM"`
	BaseURL    string        `envconfig:"ROOMEZES_TWILIO_BASE_URL" default:"https://api.twilio.com"`
	Timeout    time.Duration `envconfig:"ROOMEZES_TWILIO_TIMEOUT" default:"10s"`
}

// Configured reports whether every credential needed to send a message is present.
func (t TwilioConfig) Configured() bool {
	return strings.TrimSpace(t.AccountSID) != "" &&
		strings.TrimSpace(t.AuthToken) != "" &&
		strings.TrimSpace(t.From) != ""
}

type SendgridConfig struct {
	APIKey      string        `envconfig:"ROOMEZES_SENDGRID_API_KEY"`
	DefaultFrom string        `envconfig:"ROOMEZES_SENDGRID_FROM_EMAIL" default:"orders@roomezes.app"`
	BaseURL     string        `envconfig:"ROOMEZES_SENDGRID_BASE_URL" default:"https://api.sendgrid.com"`
	Timeout     time.Duration `envconfig:"ROOMEZES_SENDGRID_TIMEOUT" default:"10s"`
}

func (s SendgridConfig) Configured() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

type CheckoutConfig struct {
	Currency      string        `envconfig:"ROOMEZES_CHECKOUT_CURRENCY" default:"INR"`
	PaymentWindow time.Duration `envconfig:"ROOMEZES_CHECKOUT_PAYMENT_WINDOW" default:"15m"`
	CartTTL       time.Duration `envconfig:"ROOMEZES_CART_TTL" default:"72h"`
	HookTimeout   time.Duration `envconfig:"ROOMEZES_CHECKOUT_HOOK_TIMEOUT" default:"20s"`

	BeginLimit  int64         `envconfig:"ROOMEZES_CHECKOUT_BEGIN_LIMIT" default:"10"`
	BeginWindow time.Duration `envconfig:"ROOMEZES_CHECKOUT_BEGIN_WINDOW" default:"1m"`
}

func (c CheckoutConfig) validate() error {
	if c.PaymentWindow <= 0 {
		return fmt.Errorf("%s must be positive", EnvCheckoutPaymentWindow)
	}
	if strings.TrimSpace(c.Currency) == "" {
		return fmt.Errorf("%s is required", EnvCheckoutCurrency)
	}
	return nil
}

type TracingConfig struct {
	Endpoint    string  `envconfig:"ROOMEZES_OTEL_ENDPOINT"`
	Insecure    bool    `envconfig:"ROOMEZES_OTEL_INSECURE" default:"true"`
	SampleRatio float64 `envconfig:"ROOMEZES_OTEL_SAMPLE_RATIO" default:"1"`
}

func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ROOMEZES_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, key := range discreteDBEnvVars {
		if values[key] == "" {
			missing = append(missing, key)
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
