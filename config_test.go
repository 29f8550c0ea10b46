package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deweykai/uftp/rdt"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "uftp.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Policy() != rdt.DefaultPolicy() {
		t.Errorf("default policy %+v", cfg.Policy())
	}
	if c, err := cfg.Codec(); err != nil || c != nil {
		t.Errorf("codec %v, %v with FEC off", c, err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
role = "client"
remote = "10.0.0.2:4000"
root_dir = "/srv/files"

[transport]
retry_count = 5
min_timeout = "5ms"
default_timeout = "250ms"
growth_latency = "40ms"

[loss]
enable = true
seed = 7
good_to_bad = 0.01
bad_to_good = 0.5
loss_bad = 0.3

[fec]
enable = true
data_shards = 4
parity_shards = 2

[log]
level = "debug"
format = "json"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Role != "client" || cfg.Remote != "10.0.0.2:4000" || cfg.RootDir != "/srv/files" {
		t.Errorf("top level %+v", cfg)
	}
	if cfg.Network != "udp" {
		t.Errorf("network %q, want the default", cfg.Network)
	}
	p := cfg.Policy()
	want := rdt.DefaultPolicy()
	want.RetryCount = 5
	want.MinTimeout = 5 * time.Millisecond
	want.DefaultTimeout = 250 * time.Millisecond
	want.GrowthLatency = 40 * time.Millisecond
	if p != want {
		t.Errorf("policy %+v, want %+v", p, want)
	}
	if m := cfg.LossModel(); m.LossBad != 0.3 || m.GoodToBad != 0.01 || cfg.Loss.Seed != 7 {
		t.Errorf("loss %+v", cfg.Loss)
	}
	if c, err := cfg.Codec(); err != nil || c == nil {
		t.Errorf("codec %v, %v", c, err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log %+v", cfg.Log)
	}
}

func TestLoadConfigUnknownKey(t *testing.T) {
	path := writeConfig(t, "role = \"server\"\n[transport]\nretries = 3\n")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "transport.retries") {
		t.Errorf("err %v, want unknown key transport.retries", err)
	}
}

func TestConfigValidate(t *testing.T) {
	for name, body := range map[string]string{
		"role":     `role = "relay"`,
		"network":  `network = "tcp"`,
		"timeouts": "[transport]\nmin_timeout = \"3s\"",
		"loss":     "[loss]\nenable = true\nloss_good = 1.5",
		"fec":      "[fec]\nenable = true\ndata_shards = 0",
		"duration": "[transport]\nmax_timeout = \"soon\"",
	} {
		if _, err := LoadConfig(writeConfig(t, body)); err == nil {
			t.Errorf("%s: invalid config accepted", name)
		}
	}
}
