package config

import (
	"time"

	redisclient "github.com/ryancwalsh/near-explorer/internal/infra/redis"
	"github.com/ryancwalsh/near-explorer/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	RPC       RPCConfig          `yaml:"rpc"`
	Sync      SyncConfig         `yaml:"sync"`
	Scheduler SchedulerConfig    `yaml:"scheduler"`
	Redis     redisclient.Config `yaml:"redis"`
	Logging   LoggingConfig      `yaml:"logging"`
	Database  postgres.Config    `yaml:"database"`
	Bus       BusConfig          `yaml:"bus"`
}

// ServerConfig holds health/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// RPCConfig holds the chain RPC client settings.
type RPCConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// SyncConfig bounds the fetch pipeline and batch sink. Field names match
// the NEAR_SYNC_* environment variables, minus the NEAR_SYNC_ prefix.
type SyncConfig struct {
	FetchQueueSize   int `yaml:"fetch_queue_size"`
	SaveQueueSize    int `yaml:"save_queue_size"`
	BulkDBUpdateSize int `yaml:"bulk_db_update_size"`
}

// SchedulerConfig holds the two sync timers' periods.
type SchedulerConfig struct {
	NewTipInterval time.Duration `yaml:"new_tip_interval"`
	GapInterval    time.Duration `yaml:"gap_interval"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // parsed but not consulted: output is always tint's text format
}

// BusConfig holds the WAMP-like message bus connection settings.
type BusConfig struct {
	URL      string `yaml:"url"`
	Realm    string `yaml:"realm"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}
