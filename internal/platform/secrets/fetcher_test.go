package secrets

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
)

type stubSecretClient struct {
	calls  int
	names  []string
	value  string
	err    error
	closed bool
}

func (s *stubSecretClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	s.calls++
	s.names = append(s.names, req.GetName())
	if s.err != nil {
		return nil, s.err
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(s.value)},
	}, nil
}

func (s *stubSecretClient) Close() error {
	s.closed = true
	return nil
}

func TestFetcherResolvesAndCaches(t *testing.T) {
	stub := &stubSecretClient{value: "tok_123"}
	fetcher, err := NewFetcher(context.Background(), "demo-project", WithClient(stub))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	got, err := fetcher.Resolve(context.Background(), "functions-token")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "tok_123" {
		t.Fatalf("unexpected value %q", got)
	}
	if stub.names[0] != "projects/demo-project/secrets/functions-token/versions/latest" {
		t.Fatalf("unexpected canonical name %s", stub.names[0])
	}

	if _, err := fetcher.Resolve(context.Background(), "functions-token"); err != nil {
		t.Fatalf("cached Resolve returned error: %v", err)
	}
	if stub.calls != 1 {
		t.Fatalf("expected a single backend call, got %d", stub.calls)
	}
}

func TestFetcherPinnedVersionAndQualifiedNames(t *testing.T) {
	stub := &stubSecretClient{value: "v"}
	fetcher, err := NewFetcher(context.Background(), "demo-project", WithClient(stub))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	if _, err := fetcher.Resolve(context.Background(), "api-key@7"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if stub.names[0] != "projects/demo-project/secrets/api-key/versions/7" {
		t.Fatalf("unexpected pinned name %s", stub.names[0])
	}

	if _, err := fetcher.Resolve(context.Background(), "projects/other/secrets/key"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if stub.names[1] != "projects/other/secrets/key/versions/latest" {
		t.Fatalf("unexpected qualified name %s", stub.names[1])
	}
}

func TestFetcherPropagatesBackendErrors(t *testing.T) {
	stub := &stubSecretClient{err: errors.New("denied")}
	fetcher, err := NewFetcher(context.Background(), "demo-project", WithClient(stub))
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}

	if _, err := fetcher.Resolve(context.Background(), "functions-token"); err == nil {
		t.Fatalf("expected error from backend")
	}
}
