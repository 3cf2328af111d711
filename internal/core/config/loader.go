package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file, expanding ${VAR}
// references against the process environment, then applies the
// NEAR_* environment overrides on top — these take precedence over
// both the file and the defaults below, since they're how the sync
// engine is tuned in production without touching the config file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.RPC.URL == "" {
		cfg.RPC.URL = "https://rpc.nearprotocol.com"
	}
	if cfg.RPC.Timeout == 0 {
		cfg.RPC.Timeout = 10 * time.Second
	}
	if cfg.Sync.FetchQueueSize == 0 {
		cfg.Sync.FetchQueueSize = 1000
	}
	if cfg.Sync.SaveQueueSize == 0 {
		cfg.Sync.SaveQueueSize = 10
	}
	if cfg.Sync.BulkDBUpdateSize == 0 {
		cfg.Sync.BulkDBUpdateSize = 10
	}
	if cfg.Scheduler.NewTipInterval == 0 {
		cfg.Scheduler.NewTipInterval = time.Second
	}
	if cfg.Scheduler.GapInterval == 0 {
		cfg.Scheduler.GapInterval = 60 * time.Second
	}
}

// applyEnvOverrides layers the named environment variables from the
// external-interfaces configuration table on top of whatever the file
// and defaults produced.
func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("NEAR_RPC_URL"); v != "" {
		cfg.RPC.URL = v
	}
	overrideInt("NEAR_SYNC_FETCH_QUEUE_SIZE", &cfg.Sync.FetchQueueSize)
	overrideInt("NEAR_SYNC_SAVE_QUEUE_SIZE", &cfg.Sync.SaveQueueSize)
	overrideInt("NEAR_SYNC_BULK_DB_UPDATE_SIZE", &cfg.Sync.BulkDBUpdateSize)
	overrideMillis("NEAR_REGULAR_SYNC_NEW_NEARCORE_STATE_INTERVAL", &cfg.Scheduler.NewTipInterval)
	overrideMillis("NEAR_REGULAR_SYNC_MISSING_NEARCORE_STATE_INTERVAL", &cfg.Scheduler.GapInterval)

	if v := os.Getenv("WAMP_URL"); v != "" {
		cfg.Bus.URL = v
	}
	if v := os.Getenv("WAMP_REALM"); v != "" {
		cfg.Bus.Realm = v
	}
	if v := os.Getenv("WAMP_USERNAME"); v != "" {
		cfg.Bus.Username = v
	}
	if v := os.Getenv("WAMP_PASSWORD"); v != "" {
		cfg.Bus.Password = v
	}
}

func overrideInt(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*dst = n
}

func overrideMillis(name string, dst *time.Duration) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*dst = time.Duration(ms) * time.Millisecond
}
