package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const defaultVersion = "latest"

type secretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

var clientFactory = func(ctx context.Context, opts ...option.ClientOption) (secretManagerClient, error) {
	return secretmanager.NewClient(ctx, opts...)
}

// Fetcher resolves secret references against Google Secret Manager, caching
// values for the process lifetime. References are plain names resolved within
// the default project, or fully qualified projects/x/secrets/y paths.
type Fetcher struct {
	client         secretManagerClient
	defaultProject string
	logger         *zap.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// Option customises the Fetcher.
type Option func(*Fetcher)

// WithLogger attaches a logger for fetch diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithClient injects a Secret Manager client. Intended for tests.
func WithClient(client secretManagerClient) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// NewFetcher constructs a Fetcher bound to the given default project.
func NewFetcher(ctx context.Context, defaultProject string, opts ...Option) (*Fetcher, error) {
	fetcher := &Fetcher{
		defaultProject: strings.TrimSpace(defaultProject),
		logger:         zap.NewNop(),
		cache:          make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(fetcher)
		}
	}

	if fetcher.client == nil {
		client, err := clientFactory(ctx)
		if err != nil {
			return nil, fmt.Errorf("secrets: create client: %w", err)
		}
		fetcher.client = client
	}
	return fetcher, nil
}

// Close releases the underlying client.
func (f *Fetcher) Close() error {
	if f == nil || f.client == nil {
		return nil
	}
	return f.client.Close()
}

// Resolve returns the secret payload for the given reference.
func (f *Fetcher) Resolve(ctx context.Context, ref string) (string, error) {
	if f == nil || f.client == nil {
		return "", errors.New("secrets: fetcher not initialised")
	}

	name, err := f.canonicalName(ref)
	if err != nil {
		return "", err
	}

	f.mu.RLock()
	cached, ok := f.cache[name]
	f.mu.RUnlock()
	if ok {
		return cached, nil
	}

	resp, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		f.logger.Warn("secret access failed", zap.String("secret", maskReference(ref)), zap.Error(err))
		return "", fmt.Errorf("secrets: access %s: %w", maskReference(ref), err)
	}

	value := string(resp.GetPayload().GetData())

	f.mu.Lock()
	f.cache[name] = value
	f.mu.Unlock()

	return value, nil
}

func (f *Fetcher) canonicalName(ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return "", errors.New("secrets: reference is required")
	}
	if strings.HasPrefix(trimmed, "projects/") {
		if strings.Contains(trimmed, "/versions/") {
			return trimmed, nil
		}
		return trimmed + "/versions/" + defaultVersion, nil
	}

	name := trimmed
	version := defaultVersion
	if idx := strings.LastIndex(trimmed, "@"); idx > 0 {
		name = trimmed[:idx]
		version = trimmed[idx+1:]
	}
	if f.defaultProject == "" {
		return "", fmt.Errorf("secrets: no default project for reference %s", maskReference(ref))
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", f.defaultProject, name, version), nil
}

func maskReference(ref string) string {
	trimmed := strings.TrimSpace(ref)
	if len(trimmed) <= 4 {
		return "****"
	}
	return trimmed[:4] + "****"
}
