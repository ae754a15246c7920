// Package config loads the store's on-disk configuration file
// (ledgerstore.toml) and applies LEDGERSTORE_*-prefixed environment
// overrides on top of it, the same two-layer precedence the teacher
// project's bootstrap settings use (file first, environment wins).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Duration is time.Duration with text (de)serialization, so it can be
// written in a ledgerstore.toml file as a Go duration string ("5s",
// "200ms") instead of a raw nanosecond count. BurntSushi/toml decodes a
// string-valued TOML field into any Go type implementing
// encoding.TextUnmarshaler.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	parsed, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the store's tunable runtime configuration.
type Config struct {
	// LedgerRoot is the directory the ledger is rooted at.
	LedgerRoot string `toml:"ledger_root"`

	// RetryMaxElapsed bounds how long Ledger.Append retries transient
	// filesystem errors.
	RetryMaxElapsed Duration `toml:"retry_max_elapsed"`

	// LockTimeout bounds how long Ledger.Append waits to acquire the
	// ledger root's single-writer advisory lock before giving up.
	LockTimeout Duration `toml:"lock_timeout"`

	// CacheSize bounds the per-item LRU cache. <= 0 means unbounded.
	CacheSize int `toml:"cache_size"`

	// WatchDebounce is the coalescing window package ledger's fsnotify
	// watcher uses before re-reading the entries/ directory.
	WatchDebounce Duration `toml:"watch_debounce"`
}

// Default returns the built-in configuration used when no file and no
// environment overrides are present.
func Default() Config {
	return Config{
		LedgerRoot:      ".",
		RetryMaxElapsed: Duration(2 * time.Second),
		LockTimeout:     Duration(5 * time.Second),
		CacheSize:       10000,
		WatchDebounce:   Duration(200 * time.Millisecond),
	}
}

// Load reads path (a ledgerstore.toml file) over Default, then applies
// LEDGERSTORE_* environment overrides. path == "" skips the file and
// only applies defaults + environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides reads LEDGERSTORE_LEDGER_ROOT, LEDGERSTORE_CACHE_SIZE,
// LEDGERSTORE_RETRY_MAX_ELAPSED, LEDGERSTORE_LOCK_TIMEOUT, and
// LEDGERSTORE_WATCH_DEBOUNCE, each overriding the matching field when set.
func applyEnvOverrides(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix("LEDGERSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if s := v.GetString("ledger_root"); s != "" {
		cfg.LedgerRoot = s
	}
	if s := v.GetString("cache_size"); s != "" {
		if n := v.GetInt("cache_size"); n != 0 {
			cfg.CacheSize = n
		}
	}
	if s := v.GetString("retry_max_elapsed"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.RetryMaxElapsed = Duration(d)
		}
	}
	if s := v.GetString("lock_timeout"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.LockTimeout = Duration(d)
		}
	}
	if s := v.GetString("watch_debounce"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.WatchDebounce = Duration(d)
		}
	}
}
