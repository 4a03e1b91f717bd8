package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "8080"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultCurrency             = "INR"
	defaultGeocoderTimeout      = 5 * time.Second
	defaultChatHistoryLimit     = 200
	defaultRecentSearchLimit    = 10
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200
	defaultPollInterval         = 10 * time.Second
	defaultPollMaxAttempts      = 30
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Auth        AuthConfig
	Firestore   FirestoreConfig
	Redis       RedisConfig
	PSP         PSPConfig
	Geocoder    GeocoderConfig
	Storefront  StorefrontConfig
	Idempotency IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// AuthConfig holds bearer-token verification settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// FirestoreConfig stores database parameters. An empty project id selects the
// in-memory repositories.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// RedisConfig points at the cache used for recent searches and idempotency
// records. An empty address selects the in-memory fallbacks.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PSPConfig collects payment provider credentials. Providers without
// credentials are left unregistered and surface as "not configured".
type PSPConfig struct {
	StripeAPIKey string

	RazorpayKeyID     string
	RazorpayKeySecret string

	PayPalClientID string
	PayPalSecret   string
	PayPalLive     bool

	GooglePayMerchantID string
	GooglePayGateway    string

	PhonePeMerchantID string
	PhonePeSaltKey    string
	PhonePeSaltIndex  string
	PhonePeBaseURL    string

	UPIPayeeVPA  string
	UPIPayeeName string

	PollInterval    time.Duration
	PollMaxAttempts int
}

// GeocoderConfig points at the reverse-geocode proxy.
type GeocoderConfig struct {
	BaseURL string
	Timeout time.Duration
}

// StorefrontConfig carries storefront-level tunables.
type StorefrontConfig struct {
	DefaultCurrency   string
	ChatHistoryLimit  int
	RecentSearchLimit int
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// ValidationError is returned when required configuration fields are missing or invalid.
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

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values
// in the map take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env
// overrides, and environment variables.
func Load(opts ...Option) (Config, error) {
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
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Auth: AuthConfig{
			JWTSecret: stringWithDefault(lookup, "API_AUTH_JWT_SECRET", ""),
			Issuer:    stringWithDefault(lookup, "API_AUTH_ISSUER", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "API_FIRESTORE_EMULATOR_HOST", ""),
		},
		Redis: RedisConfig{
			Addr:     stringWithDefault(lookup, "API_REDIS_ADDR", ""),
			Password: stringWithDefault(lookup, "API_REDIS_PASSWORD", ""),
			DB:       intWithDefault(lookup, "API_REDIS_DB", 0),
		},
		PSP: PSPConfig{
			StripeAPIKey:        stringWithDefault(lookup, "API_PSP_STRIPE_API_KEY", ""),
			RazorpayKeyID:       stringWithDefault(lookup, "API_PSP_RAZORPAY_KEY_ID", ""),
			RazorpayKeySecret:   stringWithDefault(lookup, "API_PSP_RAZORPAY_KEY_SECRET", ""),
			PayPalClientID:      stringWithDefault(lookup, "API_PSP_PAYPAL_CLIENT_ID", ""),
			PayPalSecret:        stringWithDefault(lookup, "API_PSP_PAYPAL_SECRET", ""),
			PayPalLive:          boolWithDefault(lookup, "API_PSP_PAYPAL_LIVE", false),
			GooglePayMerchantID: stringWithDefault(lookup, "API_PSP_GOOGLEPAY_MERCHANT_ID", ""),
			GooglePayGateway:    stringWithDefault(lookup, "API_PSP_GOOGLEPAY_GATEWAY", ""),
			PhonePeMerchantID:   stringWithDefault(lookup, "API_PSP_PHONEPE_MERCHANT_ID", ""),
			PhonePeSaltKey:      stringWithDefault(lookup, "API_PSP_PHONEPE_SALT_KEY", ""),
			PhonePeSaltIndex:    stringWithDefault(lookup, "API_PSP_PHONEPE_SALT_INDEX", "1"),
			PhonePeBaseURL:      stringWithDefault(lookup, "API_PSP_PHONEPE_BASE_URL", "https://api.phonepe.com/apis/hermes"),
			UPIPayeeVPA:         stringWithDefault(lookup, "API_PSP_UPI_PAYEE_VPA", ""),
			UPIPayeeName:        stringWithDefault(lookup, "API_PSP_UPI_PAYEE_NAME", ""),
			PollInterval:        durationWithDefault(lookup, "API_PSP_POLL_INTERVAL", defaultPollInterval),
			PollMaxAttempts:     intWithDefault(lookup, "API_PSP_POLL_MAX_ATTEMPTS", defaultPollMaxAttempts),
		},
		Geocoder: GeocoderConfig{
			BaseURL: stringWithDefault(lookup, "API_GEOCODER_BASE_URL", ""),
			Timeout: durationWithDefault(lookup, "API_GEOCODER_TIMEOUT", defaultGeocoderTimeout),
		},
		Storefront: StorefrontConfig{
			DefaultCurrency:   strings.ToUpper(stringWithDefault(lookup, "API_STOREFRONT_CURRENCY", defaultCurrency)),
			ChatHistoryLimit:  intWithDefault(lookup, "API_STOREFRONT_CHAT_HISTORY_LIMIT", defaultChatHistoryLimit),
			RecentSearchLimit: intWithDefault(lookup, "API_STOREFRONT_RECENT_SEARCH_LIMIT", defaultRecentSearchLimit),
		},
		Idempotency: IdempotencyConfig{
			Header:           stringWithDefault(lookup, "API_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "API_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: intWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		missing = append(missing, "Auth.JWTSecret")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}
	if cfg.Idempotency.CleanupInterval <= 0 {
		missing = append(missing, "Idempotency.CleanupInterval")
	}
	if cfg.Idempotency.CleanupBatchSize <= 0 {
		missing = append(missing, "Idempotency.CleanupBatchSize")
	}
	if cfg.PSP.PollInterval <= 0 {
		missing = append(missing, "PSP.PollInterval")
	}
	if cfg.PSP.PollMaxAttempts <= 0 {
		missing = append(missing, "PSP.PollMaxAttempts")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
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
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
