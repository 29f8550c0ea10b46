package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/deweykai/uftp/channel"
	"github.com/deweykai/uftp/fec"
	"github.com/deweykai/uftp/rdt"
)

type Config struct {
	Role     string `toml:"role"`
	Network  string `toml:"network"`
	Listen   string `toml:"listen"`
	Remote   string `toml:"remote"`
	RootDir  string `toml:"root_dir"`
	Netns    string `toml:"netns"`
	TraceCSV string `toml:"trace_csv"`
	// ScionPath pins the client to the path with this fingerprint.
	ScionPath string `toml:"scion_path"`

	Transport TransportConfig `toml:"transport"`
	Loss      LossConfig      `toml:"loss"`
	FEC       FECConfig       `toml:"fec"`
	Log       LogConfig       `toml:"log"`
}

type TransportConfig struct {
	RetryCount     int      `toml:"retry_count"`
	DefaultTimeout duration `toml:"default_timeout"`
	MinTimeout     duration `toml:"min_timeout"`
	MaxTimeout     duration `toml:"max_timeout"`
	TimeoutMargin  duration `toml:"timeout_margin"`
	Backoff        float64  `toml:"backoff"`
	InitialWindow  int      `toml:"initial_window"`
	MaxWindow      int      `toml:"max_window"`
	GrowthLatency  duration `toml:"growth_latency"`
}

// LossConfig enables simulated loss on outgoing datagrams.
type LossConfig struct {
	Enable    bool    `toml:"enable"`
	Seed      int64   `toml:"seed"`
	GoodToBad float64 `toml:"good_to_bad"`
	BadToGood float64 `toml:"bad_to_good"`
	LossGood  float64 `toml:"loss_good"`
	LossBad   float64 `toml:"loss_bad"`
}

type FECConfig struct {
	Enable       bool `toml:"enable"`
	DataShards   int  `toml:"data_shards"`
	ParityShards int  `toml:"parity_shards"`
}

type LogConfig struct {
	Level       string         `toml:"level"`
	Format      string         `toml:"format"`
	Outputs     []string       `toml:"outputs"`
	Development bool           `toml:"development"`
	Rotation    RotationConfig `toml:"rotation"`
}

type RotationConfig struct {
	Enable     bool   `toml:"enable"`
	Filename   string `toml:"filename"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func Default() *Config {
	p := rdt.DefaultPolicy()
	return &Config{
		Role:    "server",
		Network: "udp",
		Listen:  ":1234",
		Remote:  "127.0.0.1:1234",
		RootDir: ".",
		Transport: TransportConfig{
			RetryCount:     p.RetryCount,
			DefaultTimeout: duration{p.DefaultTimeout},
			MinTimeout:     duration{p.MinTimeout},
			MaxTimeout:     duration{p.MaxTimeout},
			TimeoutMargin:  duration{p.Margin},
			Backoff:        p.Backoff,
			InitialWindow:  p.InitialWindow,
			MaxWindow:      p.MaxWindow,
			GrowthLatency:  duration{p.GrowthLatency},
		},
		Loss: LossConfig{Seed: 1},
		FEC: FECConfig{
			DataShards:   fec.DefaultDataShards,
			ParityShards: fec.DefaultParityShards,
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
		},
	}
}

// LoadConfig applies the file at path over Default. An empty path yields
// the defaults. Unknown keys are an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.Role {
	case "server", "client":
	default:
		return fmt.Errorf("invalid role %q", c.Role)
	}
	switch c.Network {
	case "udp", "scion":
	default:
		return fmt.Errorf("invalid network %q", c.Network)
	}
	if err := c.Policy().Validate(); err != nil {
		return err
	}
	if c.Loss.Enable {
		if err := c.LossModel().Validate(); err != nil {
			return err
		}
	}
	if c.FEC.Enable {
		if _, err := fec.New(c.FEC.DataShards, c.FEC.ParityShards); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) Policy() rdt.Policy {
	t := c.Transport
	return rdt.Policy{
		RetryCount:     t.RetryCount,
		DefaultTimeout: t.DefaultTimeout.Duration,
		MinTimeout:     t.MinTimeout.Duration,
		MaxTimeout:     t.MaxTimeout.Duration,
		Margin:         t.TimeoutMargin.Duration,
		Backoff:        t.Backoff,
		InitialWindow:  t.InitialWindow,
		MaxWindow:      t.MaxWindow,
		GrowthLatency:  t.GrowthLatency.Duration,
	}
}

func (c *Config) LossModel() channel.GilbertElliott {
	return channel.GilbertElliott{
		GoodToBad: c.Loss.GoodToBad,
		BadToGood: c.Loss.BadToGood,
		LossGood:  c.Loss.LossGood,
		LossBad:   c.Loss.LossBad,
	}
}

// Codec returns the configured fec codec, or nil when FEC is off.
func (c *Config) Codec() (*fec.Codec, error) {
	if !c.FEC.Enable {
		return nil, nil
	}
	return fec.New(c.FEC.DataShards, c.FEC.ParityShards)
}
