package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "environment: test\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.OHLCV.CacheTTL != 600*time.Second || cfg.OHLCV.MaxCandles != 500 {
		t.Fatalf("ohlcv defaults = %v/%d", cfg.OHLCV.CacheTTL, cfg.OHLCV.MaxCandles)
	}
	if cfg.Batch.MaxSymbols != 50 || cfg.Batch.JobTimeout != 300*time.Second || cfg.Batch.Workers != 4 {
		t.Fatalf("batch defaults = %+v", cfg.Batch)
	}
	if cfg.Orchestrator.VolTargetAnnual != 0.15 || cfg.Orchestrator.MaxPositionFraction != 0.02 {
		t.Fatalf("orchestrator defaults = %+v", cfg.Orchestrator)
	}
	if cfg.JobRetention() != 3000*time.Second {
		t.Fatalf("retention = %v, want 10x job timeout", cfg.JobRetention())
	}
}

func TestLoadFileValuesWin(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 9090
batch:
  max_symbols: 10
  job_timeout: 60s
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Batch.MaxSymbols != 10 {
		t.Fatalf("file overrides lost: %+v", cfg.Batch)
	}
	if cfg.JobRetention() != 600*time.Second {
		t.Fatalf("retention = %v, want 600s", cfg.JobRetention())
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("OHLCV_CACHE_TTL", "120")
	t.Setenv("BATCH_MAX_SYMBOLS", "7")
	t.Setenv("BATCH_JOB_TIMEOUT", "45")
	t.Setenv("ORCHESTRATOR_MAX_POSITION_FRACTION", "0.05")
	t.Setenv("ENGINE_WEIGHTS_MIXED", `{"KM1":0.7,"KM3":0.3}`)
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")

	cfg, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if cfg.OHLCV.CacheTTL != 120*time.Second {
		t.Fatalf("cache ttl = %v", cfg.OHLCV.CacheTTL)
	}
	if cfg.Batch.MaxSymbols != 7 || cfg.Batch.JobTimeout != 45*time.Second {
		t.Fatalf("batch = %+v", cfg.Batch)
	}
	if cfg.Orchestrator.MaxPositionFraction != 0.05 {
		t.Fatalf("max position fraction = %v", cfg.Orchestrator.MaxPositionFraction)
	}
	w := cfg.Orchestrator.Weights["mixed"]
	if w["KM1"] != 0.7 || w["KM3"] != 0.3 {
		t.Fatalf("mixed weights = %v", w)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("kafka = %+v", cfg.Kafka)
	}
	if cfg.Redis.Host != "redis.internal" || cfg.Redis.Port != 6380 {
		t.Fatalf("redis = %+v", cfg.Redis)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "batch:\n  max_symbols: -1\n"))
	if err == nil {
		t.Fatal("expected validation error for negative max_symbols")
	}

	_, err = Load(writeConfig(t, "kafka:\n  enabled: true\n"))
	if err == nil {
		t.Fatal("expected validation error for kafka without brokers")
	}
}
