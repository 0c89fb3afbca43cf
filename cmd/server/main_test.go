package main

import (
	"testing"

	"consigna/backend/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{Environment: "production", AuthSecret: "short", AllowedOrigin: "https://shop.example"})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}
}

func TestValidateSecurityConfigRejectsWildcardOriginInProduction(t *testing.T) {
	err := validateSecurityConfig(config.Config{
		Environment:   "production",
		AuthSecret:    "0123456789abcdef0123456789abcdef",
		AllowedOrigin: "*",
	})
	if err == nil {
		t.Fatalf("expected wildcard origin to be rejected in production")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{
		Environment:   "production",
		AuthSecret:    "0123456789abcdef0123456789abcdef",
		AllowedOrigin: "https://shop.example",
	})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestValidateSecurityConfigAllowsDevelopmentDefaults(t *testing.T) {
	if err := validateSecurityConfig(config.Config{Environment: "development"}); err != nil {
		t.Fatalf("expected development config to pass, got %v", err)
	}
}
