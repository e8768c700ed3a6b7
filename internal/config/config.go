package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings"

    "github.com/joho/godotenv"
)

// Store backends for the catalog and the reservation ledger.
const (
    StoreMemory = "memory"
    StoreMySQL  = "mysql"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Database settings are only required when the
// MySQL store is selected.
type Config struct {
    Env               string // application environment (e.g. "dev", "prod")
    Port              string // HTTP port to listen on
    Store             string // "memory" or "mysql"
    Migrate           bool   // create tables on startup (mysql store only)
    DBUser            string // database username
    DBPass            string // database password (optional)
    DBHost            string // database host address
    DBPort            string // database port number
    DBName            string // database name
    JWTSecret         string // secret used to sign admin JWTs
    AccessTTLMin      int    // access token time-to-live in minutes
    AdminUsername     string // admin login name
    AdminPasswordHash string // bcrypt hash of the admin password; empty disables login
    Hold              HoldConfig
    AMQP              AMQPConfig
}

// Load reads .env (when present) and the process environment and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    // A missing .env is fine; real deployments set the environment directly.
    _ = godotenv.Load()

    cfg := Config{
        Env:               envStr("APP_ENV", "dev"),
        Port:              envStr("APP_PORT", "8080"),
        Store:             strings.ToLower(envStr("STORE", StoreMemory)),
        Migrate:           envBool("DB_MIGRATE", false),
        JWTSecret:         must("JWT_SECRET"),
        AccessTTLMin:      envInt("ACCESS_TOKEN_TTL_MIN", 30),
        AdminUsername:     envStr("ADMIN_USERNAME", "admin"),
        AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
        Hold:              LoadHoldConfig(),
        AMQP:              LoadAMQPConfig(),
    }
    switch cfg.Store {
    case StoreMemory:
    case StoreMySQL:
        cfg.DBUser = must("DB_USER")
        cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = envStr("DB_PORT", strconv.Itoa(3306))
        cfg.DBName = must("DB_NAME")
    default:
        log.Fatalf("invalid STORE %q (want %s or %s)", cfg.Store, StoreMemory, StoreMySQL)
    }
    if cfg.AccessTTLMin < 1 {
        cfg.AccessTTLMin = mustInt("ACCESS_TOKEN_TTL_MIN")
    }
    return cfg
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

// mustInt is like must() but requires a positive integer.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil || n < 1 {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
