package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Every platform carries its own signing secret
// and token lifetime so that a token minted for one surface can never be
// replayed against another.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	AdminSecret  string // JWT secret for the admin platform
	DeviceSecret string // JWT secret for the device platform
	ClientSecret string // JWT secret for the client platform
	AdminTTLMin  int    // admin token time-to-live in minutes
	DeviceTTLMin int    // device token time-to-live in minutes
	ClientTTLMin int    // client token time-to-live in minutes

	BcryptCost int // bcrypt cost for password hashing

	MaxLoginRetry    int // failed attempts before an account locks
	LoginReactiveMin int // lockout window length in minutes
	ResetExpireMin   int // password-reset code lifetime in minutes

	NotifyTimeoutSec int  // upper bound on a single email/SMS dispatch
	EmailEnabled     bool // whether the email delivery channel is configured
	SMSEnabled       bool // whether the SMS delivery channel is configured

	SeedFile string // path to the versioned route-permission fixture
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:    must("APP_ENV"),
		Port:   must("APP_PORT"),
		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"), // empty allowed
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		AdminSecret:  must("JWT_SECRET_ADMIN"),
		DeviceSecret: must("JWT_SECRET_DEVICE"),
		ClientSecret: must("JWT_SECRET_CLIENT"),
		AdminTTLMin:  intOr("ADMIN_TOKEN_TTL_MIN", 30),
		DeviceTTLMin: intOr("DEVICE_TOKEN_TTL_MIN", 60),
		ClientTTLMin: intOr("CLIENT_TOKEN_TTL_MIN", 60),

		BcryptCost: mustInt("BCRYPT_COST"),

		MaxLoginRetry:    intOr("MAX_LOGIN_RETRY_LIMIT", 5),
		LoginReactiveMin: intOr("LOGIN_REACTIVE_TIME_MIN", 30),
		ResetExpireMin:   intOr("RESET_CODE_EXPIRE_MIN", 15),

		NotifyTimeoutSec: intOr("NOTIFY_TIMEOUT_SEC", 5),
		EmailEnabled:     boolOr("NOTIFY_EMAIL_ENABLED", true),
		SMSEnabled:       boolOr("NOTIFY_SMS_ENABLED", false),

		SeedFile: strOr("ACCESS_SEED_FILE", "seed/access.json"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func strOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

func boolOr(key string, def bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	case "0", "false", "FALSE", "False", "no", "off":
		return false
	}
	return def
}
