package config

// EnvPrefix is handed to envconfig; every field carries a fully-qualified tag so it only
// matters for error messages.
const EnvPrefix = "ROOMEZES"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv = "ROOMEZES_APP_ENV"
	EnvPort   = "ROOMEZES_APP_PORT"

	EnvDBDSN  = "ROOMEZES_DB_DSN"
	EnvDBHost = "ROOMEZES_DB_HOST"
	EnvDBUser = "ROOMEZES_DB_USER"
	EnvDBName = "ROOMEZES_DB_NAME"

	EnvRedisURL = "ROOMEZES_REDIS_URL"

	EnvAuthJWTSecret = "ROOMEZES_AUTH_JWT_SECRET"
	EnvAuthIssuer    = "ROOMEZES_AUTH_ISSUER"

	EnvRazorpayKeyID     = "ROOMEZES_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret = "ROOMEZES_RAZORPAY_KEY_SECRET"

	EnvTwilioAccountSID = "ROOMEZES_TWILIO_ACCOUNT_SID"
	EnvTwilioAuthToken  = "ROOMEZES_TWILIO_AUTH_TOKEN"
	EnvTwilioFrom       = "ROOMEZES_TWILIO_FROM"

	EnvCheckoutCurrency      = "ROOMEZES_CHECKOUT_CURRENCY"
	EnvCheckoutPaymentWindow = "ROOMEZES_CHECKOUT_PAYMENT_WINDOW"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
