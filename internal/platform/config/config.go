package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile             = ".env"
	defaultPort                = "8080"
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 120 * time.Second
	defaultFunctionsTimeout    = 20 * time.Second
	defaultQuoteDebounce       = 400 * time.Millisecond
	defaultPaymentPollInterval = 5 * time.Second
	secretReferencePrefix      = "secret://"
)

// Config captures all runtime configuration organised by concern. Components
// receive the slice of configuration they need; nothing reads the environment
// after Load returns.
type Config struct {
	Server    ServerConfig
	Firebase  FirebaseConfig
	Firestore FirestoreConfig
	Functions FunctionsConfig
	Jobs      JobsConfig
	Checkout  CheckoutConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirebaseConfig stores Firebase project settings used for token verification.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// FunctionsConfig points at the hosted serverless function endpoints used for
// carrier quoting and payment processing.
type FunctionsConfig struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration
}

// JobsConfig configures Pub/Sub publishing of order events.
type JobsConfig struct {
	ProjectID   string
	OrdersTopic string
}

// CheckoutConfig carries the timing knobs of the checkout flows.
type CheckoutConfig struct {
	QuoteDebounce       time.Duration
	PaymentPollInterval time.Duration
}

// SecretResolver resolves secret references (secret://name) into plain values.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts a function to the SecretResolver interface.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret implements SecretResolver.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// SecretError wraps a failure while resolving one secret reference.
type SecretError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("resolve secret %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

// Option customises configuration loading.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile  string
	envMap   map[string]string
	skipEnv  bool
	resolver SecretResolver
}

// WithEnvFile overrides the dotenv path consulted before the process env.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap supplies explicit values, taking precedence over everything else.
// Intended for tests.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.skipEnv = true
	}
}

// WithSecretResolver installs the resolver used for secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.resolver = resolver
	}
}

// Load reads configuration from the environment (and optional dotenv file),
// resolves secret references, and validates the result.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{envFile: defaultEnvFile}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	fileValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if v, ok := options.envMap[key]; ok {
				return v, true
			}
		}
		if !options.skipEnv {
			if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
				return v, true
			}
		}
		if v, ok := fileValues[key]; ok {
			return v, true
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "FIREBASE_CREDENTIALS_FILE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "FIRESTORE_EMULATOR_HOST", ""),
		},
		Functions: FunctionsConfig{
			BaseURL:   stringWithDefault(lookup, "FUNCTIONS_BASE_URL", ""),
			AuthToken: stringWithDefault(lookup, "FUNCTIONS_AUTH_TOKEN", ""),
			Timeout:   durationWithDefault(lookup, "FUNCTIONS_TIMEOUT", defaultFunctionsTimeout),
		},
		Jobs: JobsConfig{
			ProjectID:   stringWithDefault(lookup, "PUBSUB_PROJECT_ID", ""),
			OrdersTopic: stringWithDefault(lookup, "ORDERS_TOPIC", ""),
		},
		Checkout: CheckoutConfig{
			QuoteDebounce:       durationWithDefault(lookup, "QUOTE_DEBOUNCE", defaultQuoteDebounce),
			PaymentPollInterval: durationWithDefault(lookup, "PAYMENT_POLL_INTERVAL", defaultPaymentPollInterval),
		},
	}

	if cfg.Functions.AuthToken, err = resolveSecret(ctx, cfg.Functions.AuthToken, options.resolver); err != nil {
		return Config{}, err
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, secretReferencePrefix) {
		return trimmed, nil
	}
	name := strings.TrimPrefix(trimmed, secretReferencePrefix)
	if resolver == nil {
		return "", &SecretError{Name: name, Err: errors.New("no secret resolver configured")}
	}
	resolved, err := resolver.ResolveSecret(ctx, name)
	if err != nil {
		return "", &SecretError{Name: name, Err: err}
	}
	return strings.TrimSpace(resolved), nil
}

func validateConfig(cfg Config) error {
	var missing []string
	if strings.TrimSpace(cfg.Firestore.ProjectID) == "" {
		missing = append(missing, "FIRESTORE_PROJECT_ID")
	}
	if strings.TrimSpace(cfg.Functions.BaseURL) == "" {
		missing = append(missing, "FUNCTIONS_BASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required values: %s", strings.Join(missing, ", "))
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	values := make(map[string]string)
	if strings.TrimSpace(path) == "" {
		return values, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		if key != "" {
			values[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	v, ok := lookup(key)
	if !ok {
		return fallback
	}
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(trimmed); err == nil && parsed > 0 {
		return parsed
	}
	if seconds, err := strconv.Atoi(trimmed); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
