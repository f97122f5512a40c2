package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	envPrefix = "STOREFRONT_"

	defaultEnvFile        = ".env"
	defaultPort           = "8080"
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultIdleTimeout    = 120 * time.Second
	defaultStoreBackend   = StoreBackendMemory
	defaultListingTTL     = 10 * time.Minute
	defaultOrderTopic     = "storefront-orders"
	defaultSessionCookie  = "si_session"
	defaultSessionTTL     = 2 * time.Hour
	defaultSweepInterval  = 5 * time.Minute
	defaultFreeShipping   = 50000
	defaultShippingFee    = 3000
	defaultEnvironment    = "local"
	defaultFeaturedLimit  = 4
	defaultBodyLimitBytes = 64 << 10
)

// Store backends accepted by STOREFRONT_STORE_BACKEND.
const (
	StoreBackendMemory    = "memory"
	StoreBackendFirestore = "firestore"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Firestore FirestoreConfig
	Redis     RedisConfig
	PubSub    PubSubConfig
	Session   SessionConfig
	Checkout  CheckoutConfig
	Seed      SeedConfig
	Metrics   MetricsConfig
	Build     BuildConfig
	LogLevel  string
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	MaxBodyBytes  int64
	FeaturedLimit int
}

// StoreConfig selects the persistence backend for catalog data.
type StoreConfig struct {
	Backend string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// RedisConfig configures the listing cache. An empty Addr disables caching.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	ListingTTL time.Duration
}

// PubSubConfig configures order-submitted notifications. An empty ProjectID keeps notifications in the log.
type PubSubConfig struct {
	ProjectID    string
	OrderTopic   string
	EmulatorHost string
}

// SessionConfig controls the anonymous cart session cookie.
type SessionConfig struct {
	CookieName    string
	SigningKey    string
	TTL           time.Duration
	SweepInterval time.Duration
	Secure        bool
}

// CheckoutConfig holds the shipping rule applied to order drafts.
type CheckoutConfig struct {
	FreeShippingThreshold int64
	ShippingFee           int64
}

// SeedConfig controls catalog seeding at startup.
type SeedConfig struct {
	OnStart bool
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// BuildConfig carries deployment metadata surfaced on health endpoints.
type BuildConfig struct {
	Version     string
	CommitSHA   string
	Environment string
}

// ValidationError is returned when configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides. An empty path disables it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects explicit values that take precedence over the system environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables lookups against os.Environ.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load resolves configuration with precedence explicit map > OS env > dotenv > defaults.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return Config{}, err
		}
	}

	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		key = envPrefix + key
		if value, ok := options.envMap[key]; ok {
			return value, true
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:          stringWithDefault(lookup, "SERVER_PORT", defaultPort),
			ReadTimeout:   durationWithDefault(lookup, "SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:  durationWithDefault(lookup, "SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:   durationWithDefault(lookup, "SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			MaxBodyBytes:  int64(intWithDefault(lookup, "SERVER_MAX_BODY_BYTES", defaultBodyLimitBytes)),
			FeaturedLimit: intWithDefault(lookup, "SERVER_FEATURED_LIMIT", defaultFeaturedLimit),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(stringWithDefault(lookup, "STORE_BACKEND", defaultStoreBackend)),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "FIRESTORE_EMULATOR_HOST", ""),
		},
		Redis: RedisConfig{
			Addr:       stringWithDefault(lookup, "REDIS_ADDR", ""),
			Password:   stringWithDefault(lookup, "REDIS_PASSWORD", ""),
			DB:         intWithDefault(lookup, "REDIS_DB", 0),
			ListingTTL: durationWithDefault(lookup, "REDIS_LISTING_TTL", defaultListingTTL),
		},
		PubSub: PubSubConfig{
			ProjectID:    stringWithDefault(lookup, "PUBSUB_PROJECT_ID", ""),
			OrderTopic:   stringWithDefault(lookup, "PUBSUB_ORDER_TOPIC", defaultOrderTopic),
			EmulatorHost: stringWithDefault(lookup, "PUBSUB_EMULATOR_HOST", ""),
		},
		Session: SessionConfig{
			CookieName:    stringWithDefault(lookup, "SESSION_COOKIE_NAME", defaultSessionCookie),
			SigningKey:    stringWithDefault(lookup, "SESSION_SIGNING_KEY", ""),
			TTL:           durationWithDefault(lookup, "SESSION_TTL", defaultSessionTTL),
			SweepInterval: durationWithDefault(lookup, "SESSION_SWEEP_INTERVAL", defaultSweepInterval),
			Secure:        boolWithDefault(lookup, "SESSION_SECURE", false),
		},
		Checkout: CheckoutConfig{
			FreeShippingThreshold: int64(intWithDefault(lookup, "CHECKOUT_FREE_SHIPPING_THRESHOLD", defaultFreeShipping)),
			ShippingFee:           int64(intWithDefault(lookup, "CHECKOUT_SHIPPING_FEE", defaultShippingFee)),
		},
		Metrics: MetricsConfig{
			Enabled: boolWithDefault(lookup, "METRICS_ENABLED", true),
		},
		Build: BuildConfig{
			Version:     stringWithDefault(lookup, "BUILD_VERSION", "dev"),
			CommitSHA:   stringWithDefault(lookup, "BUILD_COMMIT", ""),
			Environment: stringWithDefault(lookup, "ENVIRONMENT", defaultEnvironment),
		},
		LogLevel: stringWithDefault(lookup, "LOG_LEVEL", ""),
	}
	// Seeding defaults on for the in-memory backend, where nothing else would populate the catalog.
	cfg.Seed = SeedConfig{
		OnStart: boolWithDefault(lookup, "SEED_ON_START", cfg.Store.Backend == StoreBackendMemory),
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var invalid []string

	if strings.TrimSpace(cfg.Server.Port) == "" {
		invalid = append(invalid, "Server.Port")
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		invalid = append(invalid, "Server.MaxBodyBytes")
	}
	switch cfg.Store.Backend {
	case StoreBackendMemory:
	case StoreBackendFirestore:
		if cfg.Firestore.ProjectID == "" {
			invalid = append(invalid, "Firestore.ProjectID")
		}
	default:
		invalid = append(invalid, "Store.Backend")
	}
	if cfg.Redis.Addr != "" && cfg.Redis.ListingTTL <= 0 {
		invalid = append(invalid, "Redis.ListingTTL")
	}
	if cfg.PubSub.ProjectID != "" && strings.TrimSpace(cfg.PubSub.OrderTopic) == "" {
		invalid = append(invalid, "PubSub.OrderTopic")
	}
	if strings.TrimSpace(cfg.Session.CookieName) == "" {
		invalid = append(invalid, "Session.CookieName")
	}
	// A cart store must outlive any request holding it, so the idle TTL has to exceed the write timeout.
	if cfg.Session.TTL <= 0 || cfg.Session.TTL <= cfg.Server.WriteTimeout {
		invalid = append(invalid, "Session.TTL")
	}
	if cfg.Session.SweepInterval <= 0 {
		invalid = append(invalid, "Session.SweepInterval")
	}
	if cfg.Build.Environment == "prod" && len(cfg.Session.SigningKey) < 32 {
		invalid = append(invalid, "Session.SigningKey")
	}
	if cfg.Checkout.FreeShippingThreshold < 0 {
		invalid = append(invalid, "Checkout.FreeShippingThreshold")
	}
	if cfg.Checkout.ShippingFee < 0 {
		invalid = append(invalid, "Checkout.ShippingFee")
	}

	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
