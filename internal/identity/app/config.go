package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/bookly/pkg/cryptox"
	"github.com/aussiebroadwan/bookly/pkg/httpx"
	"github.com/aussiebroadwan/bookly/pkg/jwtx"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"` // postgres://..., sqlite:<path> or file:<dsn>
	RedisURL    string `env:"REDIS_URL,required"`    // redis://..., rediss://... or memory://
	CachePrefix string `env:"CACHE_KEY_PREFIX" envDefault:"bookly"`

	JWTSecret          string   `env:"JWT_SECRET,required"`
	JWTPreviousSecrets []string `env:"JWT_PREVIOUS_SECRETS" envSeparator:","`
	JWTAlgorithm       string   `env:"JWT_ALGORITHM,required"` // HS256, HS384 or HS512
	JWTIssuer          string   `env:"JWT_ISSUER" envDefault:"bookly"`
	AccessExpiry       int      `env:"ACCESS_EXPIRY" envDefault:"3600"`   // seconds
	RefreshExpiry      int      `env:"REFRESH_EXPIRY" envDefault:"86400"` // seconds

	PasswordScheme    string `env:"PASSWORD_SCHEME" envDefault:"argon2id"`
	BcryptCost        int    `env:"BCRYPT_COST" envDefault:"10"`
	Argon2MemoryKiB   uint32 `env:"ARGON2_MEMORY_KIB" envDefault:"19456"`
	Argon2Iterations  uint32 `env:"ARGON2_ITERATIONS" envDefault:"2"`
	Argon2Parallelism uint8  `env:"ARGON2_PARALLELISM" envDefault:"1"`
	PepperFile        string `env:"PEPPER_FILE"` // empty disables the pepper

	ProfileCacheTTL                time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"24h"`
	OperationTimeout               time.Duration `env:"OPERATION_TIMEOUT" envDefault:"5s"`
	RevokeSessionsOnPasswordChange bool          `env:"REVOKE_SESSIONS_ON_PASSWORD_CHANGE" envDefault:"true"`

	Env                 string        `env:"ENV" envDefault:"dev"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	CORSAllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	RateLimitAuth   RateLimit `envPrefix:"RATE_LIMIT_AUTH_"`
	RateLimitUser   RateLimit `envPrefix:"RATE_LIMIT_USER_"`
	RateLimitPublic RateLimit `envPrefix:"RATE_LIMIT_PUBLIC_"`
}

// RateLimit overrides one limiter profile. Unset fields keep the defaults.
type RateLimit struct {
	Requests int           `env:"REQUESTS"`
	Window   time.Duration `env:"WINDOW"`
	Burst    int           `env:"BURST"`
}

func (r RateLimit) limiter() httpx.RateLimitConfig {
	return httpx.RateLimitConfig{
		RequestsPerWindow: r.Requests,
		Window:            r.Window,
		Burst:             r.Burst,
	}
}

// LoadConfig reads the configuration from the environment. Variables from
// envFiles (default ".env") are loaded first without overriding anything
// already set; a missing file is not an error.
func LoadConfig(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values env tags cannot express.
func (c Config) Validate() error {
	var errs []error

	switch c.JWTAlgorithm {
	case jwtx.AlgorithmHS256, jwtx.AlgorithmHS384, jwtx.AlgorithmHS512:
	default:
		errs = append(errs, fmt.Errorf("JWT_ALGORITHM %q: must be HS256, HS384 or HS512", c.JWTAlgorithm))
	}

	if c.AccessExpiry <= 0 {
		errs = append(errs, errors.New("ACCESS_EXPIRY must be positive"))
	}
	if c.RefreshExpiry <= 0 {
		errs = append(errs, errors.New("REFRESH_EXPIRY must be positive"))
	}

	switch cryptox.Scheme(c.PasswordScheme) {
	case cryptox.SchemeArgon2id, cryptox.SchemeBcrypt:
	default:
		errs = append(errs, fmt.Errorf("PASSWORD_SCHEME %q: must be argon2id or bcrypt", c.PasswordScheme))
	}

	if _, err := storeKind(c.DatabaseURL); err != nil {
		errs = append(errs, err)
	}
	if _, err := cacheKind(c.RedisURL); err != nil {
		errs = append(errs, err)
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}

	return errors.Join(errs...)
}

func (c Config) accessTTL() time.Duration  { return time.Duration(c.AccessExpiry) * time.Second }
func (c Config) refreshTTL() time.Duration { return time.Duration(c.RefreshExpiry) * time.Second }

type backend int

const (
	backendPostgres backend = iota + 1
	backendSQLite
	backendRedis
	backendMemory
)

func storeKind(url string) (backend, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return backendPostgres, nil
	case strings.HasPrefix(url, "sqlite:"), strings.HasPrefix(url, "file:"):
		return backendSQLite, nil
	}
	return 0, fmt.Errorf("DATABASE_URL: unsupported scheme in %q", redactURL(url))
}

func cacheKind(url string) (backend, error) {
	switch {
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		return backendRedis, nil
	case strings.HasPrefix(url, "memory://"):
		return backendMemory, nil
	}
	return 0, fmt.Errorf("REDIS_URL: unsupported scheme in %q", redactURL(url))
}

// redactURL keeps the scheme only so credentials never reach logs.
func redactURL(url string) string {
	if i := strings.Index(url, ":"); i > 0 {
		return url[:i] + ":..."
	}
	return "..."
}
