package config // package config loads application configuration from environment variables

import (
	"log"     // log reports invalid configuration and halts startup
	"os"      // os exposes the process environment
	"strconv" // strconv parses numeric variables
)

// Config holds every runtime setting of the service.  One field per
// environment variable; strings for hosts and secrets, ints for TTLs and
// cost factors.  Values are read once at startup.
type Config struct {
	Env            string // deployment environment ("dev", "test", "prod")
	Port           string // HTTP port the API listens on
	DBUser         string // MySQL username
	DBPass         string // MySQL password (may be empty for local setups)
	DBHost         string // MySQL host
	DBPort         string // MySQL port
	DBName         string // MySQL schema name
	JWTSecret      string // secret for signing access and refresh tokens
	AccessTTLMin   int    // access token lifetime in minutes
	RefreshTTLDays int    // refresh token lifetime in days
	BcryptCost     int    // bcrypt cost used when hashing passwords
}

// Load builds a Config from the environment.  Required variables go through
// must(); a missing one aborts the process with a fatal log line so the
// service never runs half-configured.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),                   // deployment environment
		Port:           must("APP_PORT"),                  // listen port
		DBUser:         must("DB_USER"),                   // database user
		DBPass:         os.Getenv("DB_PASS"),              // password, empty allowed
		DBHost:         must("DB_HOST"),                   // database host
		DBPort:         must("DB_PORT"),                   // database port
		DBName:         must("DB_NAME"),                   // database name
		JWTSecret:      must("JWT_SECRET"),                // token signing secret
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),   // access token TTL (minutes)
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"), // refresh token TTL (days)
		BcryptCost:     mustInt("BCRYPT_COST"),            // bcrypt cost factor
	}
}

// must returns the value of a required environment variable or exits the
// process when it is unset or blank.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt reads a required variable and converts it to an int, exiting on
// malformed values.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
