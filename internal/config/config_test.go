package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/pricealert/internal/domain"
)

func TestFromEnv_ParsesAndDefaults(t *testing.T) {
	t.Setenv("TARGETS_FILE", "/etc/pricealert/targets.yaml")
	t.Setenv("STATE_BACKEND", "Redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("HTTP_TIMEOUT_MS", "1234")
	t.Setenv("RUN_INTERVAL_MS", "60000")
	t.Setenv("PUBLIC_API_KEYS", "pub_a, pub_b")
	t.Setenv("PUBLIC_RPM", "-5")
	t.Setenv("ALERT_LINK", "")
	t.Setenv("GITHUB_SERVER_URL", "https://github.com/")
	t.Setenv("GITHUB_REPOSITORY", "acme/alerts")
	t.Setenv("GITHUB_RUN_ID", "42")

	cfg := FromEnv()

	if cfg.TargetsFile != "/etc/pricealert/targets.yaml" || cfg.StateBackend != "redis" || cfg.RedisDB != 3 {
		t.Fatalf("file/backend wrong: %+v", cfg)
	}
	if cfg.HTTPTimeout != 1234*time.Millisecond || cfg.RunInterval != time.Minute {
		t.Fatalf("durations wrong: timeout=%v interval=%v", cfg.HTTPTimeout, cfg.RunInterval)
	}
	if len(cfg.PublicAPIKeys) != 2 || cfg.PublicAPIKeys[1] != "pub_b" {
		t.Fatalf("public keys wrong: %+v", cfg.PublicAPIKeys)
	}
	if cfg.PublicRPM != 120 {
		t.Fatalf("negative rpm should fall back to default, got %d", cfg.PublicRPM)
	}
	if cfg.AlertLink != "https://github.com/acme/alerts/actions/runs/42" {
		t.Fatalf("alert link wrong: %q", cfg.AlertLink)
	}
	if cfg.PriceField != "bitcoin.usd" || cfg.StateFile != "state/state.json" {
		t.Fatalf("defaults wrong: %+v", cfg)
	}

	os.Unsetenv("STATE_BACKEND")
	if got := FromEnv().StateBackend; got != "file" {
		t.Fatalf("default backend = %q", got)
	}
}

func TestParseTargets_JSONWithDefaults(t *testing.T) {
	doc := `{"targets":[
		{"id":"btc-60k","label":"BTC 60k","threshold":60000,"buffer":"2000"},
		{"id":"btc-50k","threshold":"50000"}
	]}`
	ts, err := ParseTargets([]byte(doc))
	if err != nil {
		t.Fatalf("ParseTargets: %v", err)
	}
	if len(ts) != 2 {
		t.Fatalf("want 2 targets, got %d", len(ts))
	}
	if ts[0].ID != "btc-60k" || ts[0].Label != "BTC 60k" || ts[0].Threshold != 60000 || ts[0].Buffer != 2000 {
		t.Fatalf("first target wrong: %+v", ts[0])
	}
	if ts[1].Label != "btc-50k" || ts[1].Buffer != 0 {
		t.Fatalf("label/buffer defaults not applied: %+v", ts[1])
	}
}

func TestParseTargets_YAML(t *testing.T) {
	doc := `
targets:
  - id: eth
    threshold: 2500.5
    buffer: 50
`
	ts, err := ParseTargets([]byte(doc))
	if err != nil {
		t.Fatalf("ParseTargets: %v", err)
	}
	if ts[0].Threshold != 2500.5 || ts[0].Buffer != 50 {
		t.Fatalf("unexpected: %+v", ts[0])
	}
}

func TestParseTargets_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty list":        `{"targets":[]}`,
		"missing list":      `{}`,
		"missing id":        `{"targets":[{"threshold":1}]}`,
		"missing threshold": `{"targets":[{"id":"a"}]}`,
		"null threshold":    `{"targets":[{"id":"a","threshold":null}]}`,
		"text threshold":    `{"targets":[{"id":"a","threshold":"sixty"}]}`,
		"nan threshold":     `{"targets":[{"id":"a","threshold":"NaN"}]}`,
		"inf buffer":        `{"targets":[{"id":"a","threshold":1,"buffer":"+Inf"}]}`,
		"negative buffer":   `{"targets":[{"id":"a","threshold":1,"buffer":-1}]}`,
		"duplicate ids":     `{"targets":[{"id":"a","threshold":1},{"id":"a","threshold":2}]}`,
		"not a document":    `{"targets": [`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTargets([]byte(doc))
			if err == nil {
				t.Fatalf("want error")
			}
			if !errors.Is(err, domain.ErrConfig) {
				t.Fatalf("want ErrConfig, got %v", err)
			}
		})
	}
}

func TestParseTargets_MessageNamesField(t *testing.T) {
	_, err := ParseTargets([]byte(`{"targets":[{"id":"a","threshold":1},{"threshold":2}]}`))
	if err == nil || !strings.Contains(err.Error(), "targets[1].id is required") {
		t.Fatalf("want field path in message, got %v", err)
	}
}

func TestLoadTargets_MissingFile(t *testing.T) {
	_, err := LoadTargets(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("want ErrConfig, got %v", err)
	}
}

func TestValidateTargets(t *testing.T) {
	if err := ValidateTargets(nil); !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("empty list should fail, got %v", err)
	}
	inf := domain.Target{ID: "a", Threshold: 1, Buffer: math.Inf(1)}
	if err := ValidateTargets([]domain.Target{inf}); !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("infinite buffer should fail, got %v", err)
	}
	dup := []domain.Target{{ID: "a", Threshold: 1}, {ID: "a", Threshold: 2}}
	if err := ValidateTargets(dup); !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("duplicate id should fail, got %v", err)
	}
	if err := ValidateTargets([]domain.Target{{ID: "a", Threshold: 1, Buffer: -1}}); !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("negative buffer should fail, got %v", err)
	}
	if err := ValidateTargets([]domain.Target{{ID: "a", Threshold: 1}}); err != nil {
		t.Fatalf("valid target rejected: %v", err)
	}
}
