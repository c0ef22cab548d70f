package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalKafka = `
symbols: [EURUSD, GBPUSD]
kafka:
  brokers: [localhost:9092]
`

func TestLoad_DefaultsApplied(t *testing.T) {
	c, err := Load(writeConfig(t, minimalKafka))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if c.Environment != "development" {
		t.Errorf("environment = %s", c.Environment)
	}
	if c.Server.Port != 8080 {
		t.Errorf("server port = %d", c.Server.Port)
	}
	if c.Ingest.Transport != "kafka" || c.Ingest.MaxRPS != 50 {
		t.Errorf("ingest defaults = %s/%d", c.Ingest.Transport, c.Ingest.MaxRPS)
	}
	if c.Kafka.TicksTopic != "market.ticks" || c.Kafka.SignalsTopic != "signals.enhanced" {
		t.Errorf("topics = %s/%s", c.Kafka.TicksTopic, c.Kafka.SignalsTopic)
	}
	if c.Consensus.MinSources != 3 || c.Consensus.CacheTTL != 15*time.Second {
		t.Errorf("consensus defaults = %d/%v", c.Consensus.MinSources, c.Consensus.CacheTTL)
	}
	if c.Threshold.Baseline != 82 {
		t.Errorf("threshold baseline = %v", c.Threshold.Baseline)
	}
	if c.Publisher.Cooldown != 5*time.Minute || c.Publisher.DailyCap != 30 || c.Publisher.SessionCap != 10 {
		t.Errorf("publisher defaults = %v/%d/%d",
			c.Publisher.Cooldown, c.Publisher.DailyCap, c.Publisher.SessionCap)
	}
	if c.Outcome.Backend != "redis" || c.Outcome.Redis.Key != "signalforge:outcomes" {
		t.Errorf("outcome defaults = %s/%s", c.Outcome.Backend, c.Outcome.Redis.Key)
	}
}

func TestLoad_ExplicitValuesWin(t *testing.T) {
	c, err := Load(writeConfig(t, `
symbols: [XAUUSD]
ingest:
  transport: ws
  max_rps: 10
bridge:
  url: wss://bridge.example/ws
threshold:
  baseline: 78
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Ingest.Transport != "ws" || c.Ingest.MaxRPS != 10 {
		t.Errorf("ingest = %s/%d", c.Ingest.Transport, c.Ingest.MaxRPS)
	}
	if c.Threshold.Baseline != 78 {
		t.Errorf("baseline = %v", c.Threshold.Baseline)
	}
}

func TestLoad_ValidateErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no symbols", "kafka:\n  brokers: [localhost:9092]\n"},
		{"kafka transport without brokers", "symbols: [EURUSD]\n"},
		{"ws transport without bridge url", "symbols: [EURUSD]\ningest:\n  transport: ws\n"},
		{"unknown transport", "symbols: [EURUSD]\ningest:\n  transport: amqp\n"},
		{"unknown outcome backend", minimalKafka + "outcome:\n  backend: postgres\n"},
		{"source without url", minimalKafka + "consensus:\n  sources:\n    - name: broker-a\n"},
	}
	for _, tc := range cases {
		if _, err := Load(writeConfig(t, tc.body)); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadWithEnv_Overrides(t *testing.T) {
	t.Setenv("SYMBOLS", "USDJPY,AUDUSD")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("REDIS_ADDR", "redis-0:6379")

	c, err := LoadWithEnv(writeConfig(t, minimalKafka))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Symbols) != 2 || c.Symbols[0] != "USDJPY" || c.Symbols[1] != "AUDUSD" {
		t.Errorf("symbols = %v", c.Symbols)
	}
	if len(c.Kafka.Brokers) != 2 || c.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("brokers = %v", c.Kafka.Brokers)
	}
	if c.Outcome.Redis.Addr != "redis-0:6379" {
		t.Errorf("redis addr = %s", c.Outcome.Redis.Addr)
	}
}
