package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d", cfg.MaxRetries)
	}
	if cfg.BaseNackDelay != time.Second {
		t.Errorf("BaseNackDelay = %v", cfg.BaseNackDelay)
	}
	if cfg.QueueName != "audio-uploads" {
		t.Errorf("QueueName = %q", cfg.QueueName)
	}
	if cfg.LanguageCode != "pt-BR" {
		t.Errorf("LanguageCode = %q", cfg.LanguageCode)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("BASE_NACK_DELAY", "250ms")
	t.Setenv("STAGE_MAX_ATTEMPTS", "not a number")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d", cfg.MaxRetries)
	}
	if cfg.BaseNackDelay != 250*time.Millisecond {
		t.Errorf("BaseNackDelay = %v", cfg.BaseNackDelay)
	}
	if cfg.StageMaxAttempts != 3 {
		t.Errorf("unparseable int must fall back to the default, got %d", cfg.StageMaxAttempts)
	}
}
