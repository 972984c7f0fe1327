// Package config assembles server settings from defaults, dotenv files,
// REEL_* environment variables and command-line flags, in that order of
// increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/joho/godotenv"
)

const envPrefix = "REEL_"

// Store backends
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Notifiers
const (
	NotifierLog    = "log"
	NotifierOutbox = "outbox"
)

type Config struct {
	Addr     string
	BasePath string

	Store        string
	DatabaseURL  string
	SQLitePath   string
	StoreTimeout time.Duration
	Migrate      bool

	TokenSecret string
	TokenIssuer string
	SessionTTL  time.Duration
	ResetTTL    time.Duration
	PendingTTL  time.Duration

	CacheTTL  time.Duration
	CacheSize int

	LogLevel  string
	LogFormat string

	Notifier string

	Argon2Memory     uint
	Argon2Iterations uint
}

// Default returns development settings. TokenSecret is left empty and must
// be provided.
func Default() Config {
	return Config{
		Addr:             ":8080",
		Store:            StoreSQLite,
		SQLitePath:       "reel.db",
		StoreTimeout:     5 * time.Second,
		Migrate:          true,
		TokenIssuer:      "reel",
		SessionTTL:       24 * time.Hour,
		ResetTTL:         15 * time.Minute,
		PendingTTL:       time.Hour,
		CacheTTL:         5 * time.Minute,
		CacheSize:        500,
		LogLevel:         "info",
		LogFormat:        "json",
		Notifier:         NotifierLog,
		Argon2Memory:     64 * 1024,
		Argon2Iterations: 3,
	}
}

// Load builds a Config for the given command-line arguments (without the
// program name). Dotenv files are read from the working directory: .env,
// then .env.<APP_ENV>. Missing files are skipped.
func Load(args []string) (*Config, error) {
	cfg := Default()

	files, err := readDotenv(".env", dotenvFor(os.Getenv("APP_ENV")))
	if err != nil {
		return nil, err
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			return v, true
		}
		v, ok := files[envPrefix+key]
		return v, ok
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.parseFlags(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func dotenvFor(appEnv string) string {
	if appEnv == "" {
		return ""
	}
	return ".env." + appEnv
}

// readDotenv merges the files in order; later files win
func readDotenv(names ...string) (map[string]string, error) {
	merged := map[string]string{}
	for _, name := range names {
		if name == "" {
			continue
		}
		values, err := godotenv.Read(name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		for k, v := range values {
			merged[k] = v
		}
	}
	return merged, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	var errs []error
	parse := func(key string, set func(string) error) {
		if v, ok := lookup(key); ok {
			if err := set(v); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
			}
		}
	}
	duration := func(dst *time.Duration) func(string) error {
		return func(v string) (err error) {
			*dst, err = time.ParseDuration(v)
			return err
		}
	}
	unsigned := func(dst *uint) func(string) error {
		return func(v string) error {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return err
			}
			*dst = uint(n)
			return nil
		}
	}

	str("ADDR", &c.Addr)
	str("BASE_PATH", &c.BasePath)
	str("STORE", &c.Store)
	str("DATABASE_URL", &c.DatabaseURL)
	str("SQLITE_PATH", &c.SQLitePath)
	str("TOKEN_SECRET", &c.TokenSecret)
	str("TOKEN_ISSUER", &c.TokenIssuer)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("NOTIFIER", &c.Notifier)

	parse("STORE_TIMEOUT", duration(&c.StoreTimeout))
	parse("SESSION_TTL", duration(&c.SessionTTL))
	parse("RESET_TTL", duration(&c.ResetTTL))
	parse("PENDING_TTL", duration(&c.PendingTTL))
	parse("CACHE_TTL", duration(&c.CacheTTL))
	parse("CACHE_SIZE", func(v string) (err error) {
		c.CacheSize, err = strconv.Atoi(v)
		return err
	})
	parse("MIGRATE", func(v string) (err error) {
		c.Migrate, err = strconv.ParseBool(v)
		return err
	})
	parse("ARGON2_MEMORY", unsigned(&c.Argon2Memory))
	parse("ARGON2_ITERATIONS", unsigned(&c.Argon2Iterations))

	return errors.Join(errs...)
}

func (c *Config) parseFlags(args []string) error {
	flags := flag.NewFlagSet("reel", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	flags.StringVar(&c.Addr, "addr", c.Addr, "listen address")
	flags.StringVar(&c.BasePath, "base-path", c.BasePath, "route prefix")
	flags.StringVar(&c.Store, "store", c.Store, "storage backend: postgres, sqlite or memory")
	flags.StringVar(&c.DatabaseURL, "database-url", c.DatabaseURL, "PostgreSQL connection URL")
	flags.StringVar(&c.SQLitePath, "sqlite-path", c.SQLitePath, "SQLite database file")
	flags.DurationVar(&c.StoreTimeout, "store-timeout", c.StoreTimeout, "bound on each store call")
	flags.BoolVar(&c.Migrate, "migrate", c.Migrate, "apply migrations on start")
	flags.StringVar(&c.TokenSecret, "token-secret", c.TokenSecret, "HMAC secret for tokens, at least 32 characters")
	flags.StringVar(&c.TokenIssuer, "token-issuer", c.TokenIssuer, "token issuer claim")
	flags.DurationVar(&c.SessionTTL, "session-ttl", c.SessionTTL, "session token lifetime")
	flags.DurationVar(&c.ResetTTL, "reset-ttl", c.ResetTTL, "reset token lifetime")
	flags.DurationVar(&c.PendingTTL, "pending-ttl", c.PendingTTL, "how long an unverified signup holds its email")
	flags.DurationVar(&c.CacheTTL, "cache-ttl", c.CacheTTL, "catalog cache entry lifetime, 0 disables the cache")
	flags.IntVar(&c.CacheSize, "cache-size", c.CacheSize, "catalog cache capacity per kind")
	flags.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	flags.StringVar(&c.LogFormat, "log-format", c.LogFormat, "json or text")
	flags.StringVar(&c.Notifier, "notifier", c.Notifier, "code delivery: log or outbox")
	flags.UintVar(&c.Argon2Memory, "argon2-memory", c.Argon2Memory, "argon2 memory cost in KiB")
	flags.UintVar(&c.Argon2Iterations, "argon2-iterations", c.Argon2Iterations, "argon2 time cost")

	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if flags.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", flags.Args())
	}
	return nil
}

func (c *Config) Validate() error {
	var databaseRules, sqliteRules []validation.Rule
	switch c.Store {
	case StorePostgres:
		databaseRules = append(databaseRules, validation.Required)
	case StoreSQLite:
		sqliteRules = append(sqliteRules, validation.Required)
	}

	return validation.ValidateStruct(c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.Store, validation.Required, validation.In(StorePostgres, StoreSQLite, StoreMemory)),
		validation.Field(&c.DatabaseURL, databaseRules...),
		validation.Field(&c.SQLitePath, sqliteRules...),
		validation.Field(&c.StoreTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.TokenSecret, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.SessionTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.ResetTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.PendingTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.CacheTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.CacheSize, validation.Min(0)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.LogFormat, validation.In("json", "text")),
		validation.Field(&c.Notifier, validation.Required, validation.In(NotifierLog, NotifierOutbox)),
		validation.Field(&c.Argon2Memory, validation.Required, validation.Min(uint(8*1024))),
		validation.Field(&c.Argon2Iterations, validation.Required),
	)
}
