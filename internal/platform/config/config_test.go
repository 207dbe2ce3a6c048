package config

import (
	"context"
	"errors"
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"API_FIRESTORE_PROJECT_ID":     "freightdesk-test",
		"API_STORAGE_DOCUMENTS_BUCKET": "freightdesk-docs",
		"API_AUTH_JWT_SIGNING_KEY":     "test-signing-key",
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(baseEnv()),
	)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("unexpected port %q", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Fatalf("unexpected request timeout %v", cfg.Server.RequestTimeout)
	}
	if cfg.Auth.TokenTTL != 12*time.Hour {
		t.Fatalf("unexpected token ttl %v", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.Issuer != "freightdesk-api" {
		t.Fatalf("unexpected issuer %q", cfg.Auth.Issuer)
	}
	if cfg.PubSub.ProjectID != "freightdesk-test" {
		t.Fatalf("expected pubsub project inherited, got %q", cfg.PubSub.ProjectID)
	}
	if cfg.PubSub.TopicID != "quotation-events" {
		t.Fatalf("unexpected topic %q", cfg.PubSub.TopicID)
	}
	if cfg.SMTP.Port != 587 {
		t.Fatalf("unexpected smtp port %d", cfg.SMTP.Port)
	}
	if cfg.Documents.SignedURLTTL != 15*time.Minute {
		t.Fatalf("unexpected url ttl %v", cfg.Documents.SignedURLTTL)
	}
}

func TestLoadEnvMapOverrides(t *testing.T) {
	env := baseEnv()
	env["API_SERVER_PORT"] = "9090"
	env["API_AUTH_TOKEN_TTL"] = "1h"

	cfg, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(env),
	)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("unexpected port %q", cfg.Server.Port)
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Fatalf("unexpected token ttl %v", cfg.Auth.TokenTTL)
	}
}

func TestLoadValidationErrorsListFields(t *testing.T) {
	_, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(map[string]string{}),
	)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	fields := vErr.Fields()
	want := map[string]bool{
		"Firestore.ProjectID":     false,
		"Storage.DocumentsBucket": false,
		"Auth.JWTSigningKey":      false,
	}
	for _, field := range fields {
		if _, ok := want[field]; ok {
			want[field] = true
		}
	}
	for field, seen := range want {
		if !seen {
			t.Fatalf("expected %s in validation fields %v", field, fields)
		}
	}
}

func TestLoadResolvesSecretReferences(t *testing.T) {
	env := baseEnv()
	env["API_AUTH_JWT_SIGNING_KEY"] = "secret://auth-signing-key"
	env["API_SMTP_PASSWORD"] = "sm://smtp-password"

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		switch ref {
		case "secret://auth-signing-key":
			return "resolved-key", nil
		case "secret://smtp-password":
			return "resolved-password", nil
		}
		return "", errors.New("unknown secret " + ref)
	})

	cfg, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(env),
		WithSecretResolver(resolver),
	)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.JWTSigningKey != "resolved-key" {
		t.Fatalf("unexpected signing key %q", cfg.Auth.JWTSigningKey)
	}
	if cfg.SMTP.Password != "resolved-password" {
		t.Fatalf("unexpected smtp password %q", cfg.SMTP.Password)
	}
}

func TestLoadSecretResolverFailure(t *testing.T) {
	env := baseEnv()
	env["API_AUTH_JWT_SIGNING_KEY"] = "secret://auth-signing-key"

	_, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(env),
	)
	var sErr *SecretError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected SecretError, got %v", err)
	}
}

func TestLoadRequiredSecretsMissing(t *testing.T) {
	env := baseEnv()
	env["API_SMTP_PASSWORD"] = ""

	_, err := Load(context.Background(),
		WithoutSystemEnv(),
		WithEnvFile(""),
		WithEnvMap(env),
		WithRequiredSecrets("SMTP.Password"),
	)
	var mErr *MissingSecretsError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected MissingSecretsError, got %v", err)
	}
	if names := mErr.Names(); len(names) != 1 || names[0] != "SMTP.Password" {
		t.Fatalf("unexpected names %v", names)
	}
}
