package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeSecretClient struct {
	values map[string]string
	err    error
	calls  int
}

func (f *fakeSecretClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	value, ok := f.values[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "secret version not found")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}, nil
}

func (f *fakeSecretClient) Close() error { return nil }

func newTestFetcher(t *testing.T, opts ...Option) *Fetcher {
	t.Helper()
	fetcher, err := NewFetcher(context.Background(), opts...)
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = fetcher.Close()
	})
	return fetcher
}

func TestResolveFetchesRemoteAndCaches(t *testing.T) {
	client := &fakeSecretClient{values: map[string]string{
		"projects/fd-prod/secrets/jwt-signing-key/versions/latest": "super-secret",
	}}
	fetcher := newTestFetcher(t,
		WithSecretManagerClient(client),
		WithDefaultProject("fd-prod"),
		WithFallbackFile(""),
	)

	value, err := fetcher.Resolve(context.Background(), "secret://jwt-signing-key")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if value != "super-secret" {
		t.Fatalf("value = %q", value)
	}

	if _, err := fetcher.Resolve(context.Background(), "secret://jwt-signing-key"); err != nil {
		t.Fatalf("second Resolve returned error: %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("remote calls = %d, want 1", client.calls)
	}
}

func TestResolveSupportsSmScheme(t *testing.T) {
	client := &fakeSecretClient{values: map[string]string{
		"projects/fd-prod/secrets/smtp-password/versions/latest": "mail-pass",
	}}
	fetcher := newTestFetcher(t,
		WithSecretManagerClient(client),
		WithDefaultProject("fd-prod"),
		WithFallbackFile(""),
	)

	value, err := fetcher.Resolve(context.Background(), "sm://smtp-password")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if value != "mail-pass" {
		t.Fatalf("value = %q", value)
	}
}

func TestResolveFallsBackToLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".secrets.local")
	contents := "# local secrets\nsecret://jwt-signing-key=dev-key\nsm://smtp-password=dev-pass\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write fallback file: %v", err)
	}

	client := &fakeSecretClient{err: status.Error(codes.PermissionDenied, "denied")}
	fetcher := newTestFetcher(t,
		WithSecretManagerClient(client),
		WithDefaultProject("fd-prod"),
		WithFallbackFile(path),
	)

	value, err := fetcher.Resolve(context.Background(), "secret://jwt-signing-key")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if value != "dev-key" {
		t.Fatalf("value = %q", value)
	}

	value, err = fetcher.Resolve(context.Background(), "secret://smtp-password")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if value != "dev-pass" {
		t.Fatalf("value = %q", value)
	}
}

func TestResolveReturnsErrorForHardFailures(t *testing.T) {
	client := &fakeSecretClient{err: status.Error(codes.Internal, "backend exploded")}
	fetcher := newTestFetcher(t,
		WithSecretManagerClient(client),
		WithDefaultProject("fd-prod"),
		WithFallbackFile(""),
	)

	if _, err := fetcher.Resolve(context.Background(), "secret://jwt-signing-key"); err == nil {
		t.Fatal("expected error for internal failure")
	}
}

func TestResolveRejectsUnknownScheme(t *testing.T) {
	fetcher := newTestFetcher(t, WithSecretManagerClient(&fakeSecretClient{}), WithFallbackFile(""))

	if _, err := fetcher.Resolve(context.Background(), "vault://thing"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

func TestInvalidateClearsCache(t *testing.T) {
	client := &fakeSecretClient{values: map[string]string{
		"projects/fd-prod/secrets/jwt-signing-key/versions/latest": "v1",
	}}
	fetcher := newTestFetcher(t,
		WithSecretManagerClient(client),
		WithDefaultProject("fd-prod"),
		WithFallbackFile(""),
	)

	if _, err := fetcher.Resolve(context.Background(), "secret://jwt-signing-key"); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	client.values["projects/fd-prod/secrets/jwt-signing-key/versions/latest"] = "v2"
	fetcher.Invalidate("secret://jwt-signing-key")

	value, err := fetcher.Resolve(context.Background(), "secret://jwt-signing-key")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if value != "v2" {
		t.Fatalf("value = %q, want rotated value", value)
	}
	if client.calls != 2 {
		t.Fatalf("remote calls = %d, want 2", client.calls)
	}
}
