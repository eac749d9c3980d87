package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPERATOR_ADDRESS", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreDriver != "memory" || cfg.HTTPPort != "8084" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.OperatorAddress != cfg.OwnerAddress {
		t.Fatalf("operator should default to owner, got %s", cfg.OperatorAddress)
	}
	if cfg.TopicMatchResults != "match_results" {
		t.Fatalf("match results topic = %s", cfg.TopicMatchResults)
	}
	if got := cfg.KafkaTopic("payout"); got != "settlement.payout" {
		t.Fatalf("kafka topic = %s", got)
	}
}

func TestLoadRejectsInvalidDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "STORE_DRIVER") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadRejectsFeedWithoutBrokers(t *testing.T) {
	t.Setenv("RESULT_FEED_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadRejectsBadOwner(t *testing.T) {
	t.Setenv("OWNER_ADDRESS", "not-an-address")
	if _, err := Load(); err == nil {
		t.Fatal("expected error")
	}
}
