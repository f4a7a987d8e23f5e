package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations,
// costs and credit amounts.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time‑to‑live in minutes
	RefreshTTLDays int    // refresh token time‑to‑live in days
	BcryptCost     int    // bcrypt cost for password hashing

	PaymentsMode        string // "mock" or a gateway name; mock generates txn ids locally
	WelcomeBonusCredits int    // credits granted on customer registration
	GoodwillCredits     int    // extra credits on partner-initiated cancellation
	RescheduleLimitMin  int    // minimum lead time (minutes) for a reschedule
	TrialWeeklyLimit    int    // max trial bookings per rolling 7 days
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Booking-rule knobs
// have sensible defaults and are optional.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),      // environment (dev/test/prod)
		Port:           must("APP_PORT"),     // port to bind the HTTP server
		DBUser:         must("DB_USER"),      // database user
		DBPass:         os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:         must("DB_HOST"),      // database host
		DBPort:         must("DB_PORT"),      // database port
		DBName:         must("DB_NAME"),      // database name
		JWTSecret:      must("JWT_SECRET"),   // secret used for signing JWTs
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),   // TTL for access tokens in minutes
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"), // TTL for refresh tokens in days
		BcryptCost:     mustInt("BCRYPT_COST"),            // bcrypt cost factor

		PaymentsMode:        paymentsMode(),
		WelcomeBonusCredits: envInt("WELCOME_BONUS_CREDITS", 10),
		GoodwillCredits:     envInt("GOODWILL_CREDITS", 5),
		RescheduleLimitMin:  envInt("RESCHEDULE_LIMIT_MINUTES", 30),
		TrialWeeklyLimit:    envInt("TRIAL_WEEKLY_LIMIT", 2),
	}
}

// paymentsMode reads PAYMENTS_MODE and rejects anything but "mock" at
// startup.  No real gateway is wired yet, so a typo here must not let
// the service boot minting txn ids nothing will ever settle.
func paymentsMode() string {
	v := getenv("PAYMENTS_MODE", "mock")
	if v != "mock" {
		log.Fatalf("unsupported PAYMENTS_MODE %q: only \"mock\" is available", v)
	}
	return v
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
