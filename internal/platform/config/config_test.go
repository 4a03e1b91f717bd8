package config

import (
	"errors"
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"API_AUTH_JWT_SECRET": "test-secret",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(WithEnvMap(baseEnv()), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Storefront.DefaultCurrency != "INR" {
		t.Fatalf("expected default currency INR, got %q", cfg.Storefront.DefaultCurrency)
	}
	if cfg.PSP.PollInterval != 10*time.Second {
		t.Fatalf("expected 10s poll interval, got %v", cfg.PSP.PollInterval)
	}
	if cfg.PSP.PollMaxAttempts != 30 {
		t.Fatalf("expected 30 poll attempts, got %d", cfg.PSP.PollMaxAttempts)
	}
	if cfg.Idempotency.Header != "Idempotency-Key" {
		t.Fatalf("unexpected idempotency header %q", cfg.Idempotency.Header)
	}
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["API_SERVER_PORT"] = "9090"
	env["API_STOREFRONT_CURRENCY"] = "usd"
	env["API_PSP_POLL_INTERVAL"] = "2s"
	env["API_PSP_RAZORPAY_KEY_ID"] = "rzp_test_key"
	env["API_PSP_RAZORPAY_KEY_SECRET"] = "rzp_test_secret"

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port override, got %q", cfg.Server.Port)
	}
	if cfg.Storefront.DefaultCurrency != "USD" {
		t.Fatalf("expected currency upper-cased, got %q", cfg.Storefront.DefaultCurrency)
	}
	if cfg.PSP.PollInterval != 2*time.Second {
		t.Fatalf("expected poll interval override, got %v", cfg.PSP.PollInterval)
	}
	if cfg.PSP.RazorpayKeyID != "rzp_test_key" {
		t.Fatalf("expected razorpay key, got %q", cfg.PSP.RazorpayKeyID)
	}
}

func TestLoadMissingSecret(t *testing.T) {
	_, err := Load(WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error")
	}

	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	found := false
	for _, field := range validation.Fields() {
		if field == "Auth.JWTSecret" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Auth.JWTSecret in missing fields, got %v", validation.Fields())
	}
}

func TestProviderCredentialsOptional(t *testing.T) {
	cfg, err := Load(WithEnvMap(baseEnv()), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PSP.StripeAPIKey != "" || cfg.PSP.RazorpayKeyID != "" {
		t.Fatal("expected provider credentials to default empty")
	}
}
