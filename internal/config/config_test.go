package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "APP_PORT", "RESTAURANT_TZ", "STORE_DRIVER", "MONGODB_URI", "MONGODB_DATABASE",
		"DB_USER", "DB_PASS", "DB_HOST", "DB_PORT", "DB_NAME",
		"SETTINGS_DRIVER", "ADMISSION_LOCK", "ADMISSION_LOCK_TTL",
		"OUTBOX_DRIVER", "OUTBOX_WORKERS", "RABBITMQ_URL", "AMQP_URL",
		"KAFKA_BROKERS", "KAFKA_TOPIC", "NATS_URL", "NATS_SUBJECT",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS", "STAFF_EMAIL", "CHEF_PHONE", "MANAGER_PHONE",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8080" || cfg.TimeZone != "Indian/Reunion" || cfg.StoreDriver != "mongo" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.AdmissionLock != "local" || cfg.LockTTL != 10*time.Second || cfg.OutboxDriver != "local" || cfg.OutboxWorkers != 4 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.SMTPPort != 587 || len(cfg.KafkaBrokers) != 0 || cfg.StaffEmail != "" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Location().String() != "Indian/Reunion" {
		t.Errorf("location: %s", cfg.Location())
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "MySQL")
	t.Setenv("DB_USER", "booking")
	t.Setenv("DB_NAME", "restaurant")
	t.Setenv("ADMISSION_LOCK", "redis")
	t.Setenv("ADMISSION_LOCK_TTL", "3s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("SMTP_USER", "bot@example.com")
	t.Setenv("CHEF_PHONE", "0601")
	t.Setenv("MANAGER_PHONE", "0602")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StoreDriver != "mysql" || cfg.AdmissionLock != "redis" || cfg.LockTTL != 3*time.Second {
		t.Errorf("overrides: %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.StaffEmail != "bot@example.com" {
		t.Errorf("staff email falls back to SMTP_USER, got %q", cfg.StaffEmail)
	}
	if phones := cfg.StaffPhones(); len(phones) != 2 || phones[0] != "0601" {
		t.Errorf("phones: %v", phones)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	t.Setenv("RESTAURANT_TZ", "Mars/Olympus")
	t.Setenv("STORE_DRIVER", "mysql")
	t.Setenv("OUTBOX_WORKERS", "many")
	t.Setenv("ADMISSION_LOCK_TTL", "soon")
	t.Setenv("OUTBOX_DRIVER", "kafka")
	t.Setenv("SETTINGS_DRIVER", "etcd")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{
		"RESTAURANT_TZ",
		"requires DB_USER and DB_NAME",
		"invalid int for OUTBOX_WORKERS",
		"invalid duration for ADMISSION_LOCK_TTL",
		`OUTBOX_DRIVER: unknown driver "kafka"`,
		`SETTINGS_DRIVER: unknown driver "etcd"`,
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "")
	t.Setenv("RATE_LIMIT_BURST", "")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 1 || cfg.RefillTokens != 1 || cfg.RefillInterval != 2*time.Second {
		t.Errorf("got %+v", cfg)
	}
	if cfg.TTL != 10*time.Second {
		t.Errorf("ttl must be at least five refill intervals, got %s", cfg.TTL)
	}
}

func TestLoadRedisConfig(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("REDIS_PORT", "")
	if got := LoadRedisConfig().Addr; got != "cache:6380" {
		t.Errorf("got %q", got)
	}
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	if got := LoadRedisConfig().Addr; got != "redis:6379" {
		t.Errorf("host and port win, got %q", got)
	}
}

func TestParseMethods(t *testing.T) {
	m := parseMethods(" get, head ,,")
	if len(m) != 2 || !m["GET"] || !m["HEAD"] {
		t.Fatalf("got %v", m)
	}
}
