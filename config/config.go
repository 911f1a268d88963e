// Package config loads ringlogd configuration from environment variables
// (prefixed with RINGLOG_) and command line flags. Flags win.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
	"github.com/tidwall/pretty"

	"github.com/kjk/ringlog/backing"
	"github.com/kjk/ringlog/snapshot"
)

const envPrefix = "ringlog"

// Config is the configuration of ringlogd
type Config struct {
	Port int `split_words:"true" default:"9000" json:"port"`
	// number of retained records
	Capacity int `split_words:"true" default:"10" json:"capacity"`
	// limit on unterminated bytes per connection, 0 means no limit
	MaxPending     int `split_words:"true" default:"1048576" json:"maxPending"`
	ReadBufferSize int `split_words:"true" default:"256" json:"readBufferSize"`

	Timestamps        bool          `split_words:"true" default:"true" json:"timestamps"`
	TimestampInterval time.Duration `split_words:"true" default:"10s" json:"timestampInterval"`

	// memory, file or bolt
	Backing  string `split_words:"true" default:"memory" json:"backing"`
	DataPath string `split_words:"true" default:"/var/tmp/aesdsocketdata" json:"dataPath"`
	KeepData bool   `split_words:"true" json:"keepData"`
	Restore  bool   `split_words:"true" json:"restore"`

	LogDir        string `split_words:"true" json:"logDir"`
	Verbose       bool   `split_words:"true" json:"verbose"`
	LogShipURL    string `split_words:"true" json:"logShipURL"`
	LogShipApiKey string `split_words:"true" json:"-"`

	SnapshotEndpoint    string `split_words:"true" json:"snapshotEndpoint"`
	SnapshotRegion      string `split_words:"true" json:"snapshotRegion"`
	SnapshotBucket      string `split_words:"true" json:"snapshotBucket"`
	SnapshotAccess      string `split_words:"true" json:"-"`
	SnapshotSecret      string `split_words:"true" json:"-"`
	SnapshotCompression string `split_words:"true" default:"br" json:"snapshotCompression"`

	// flags only
	Daemon      bool `ignored:"true" json:"daemon"`
	PrintConfig bool `ignored:"true" json:"-"`
}

// SnapshotEnabled returns true if snapshots should be uploaded on shutdown
func (c *Config) SnapshotEnabled() bool {
	return c.SnapshotBucket != ""
}

// Load reads configuration from environment and then from args
// (os.Args[1:] without the program name)
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, err
	}

	fs := pflag.NewFlagSet("ringlogd", pflag.ContinueOnError)
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "tcp port to listen on")
	fs.IntVarP(&cfg.Capacity, "capacity", "c", cfg.Capacity, "number of retained records")
	fs.IntVar(&cfg.MaxPending, "max-pending", cfg.MaxPending, "max size of unterminated line, 0 for no limit")
	fs.BoolVar(&cfg.Timestamps, "timestamps", cfg.Timestamps, "periodically append a timestamp record")
	fs.DurationVar(&cfg.TimestampInterval, "timestamp-interval", cfg.TimestampInterval, "interval between timestamp records")
	fs.StringVar(&cfg.Backing, "backing", cfg.Backing, "where records are mirrored: memory, file or bolt")
	fs.StringVar(&cfg.DataPath, "data", cfg.DataPath, "path of the mirror file or database")
	fs.BoolVar(&cfg.KeepData, "keep-data", cfg.KeepData, "don't remove mirror file on shutdown")
	fs.BoolVar(&cfg.Restore, "restore", cfg.Restore, "load records from the mirror on startup")
	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "directory for log files")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "verbose logging")
	fs.BoolVarP(&cfg.Daemon, "daemon", "d", false, "run as a daemon")
	fs.BoolVar(&cfg.PrintConfig, "print-config", false, "print configuration and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that values are within allowed ranges
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1, is %d", c.Capacity)
	}
	if c.MaxPending < 0 {
		return fmt.Errorf("invalid max pending %d", c.MaxPending)
	}
	if c.ReadBufferSize < 1 {
		return fmt.Errorf("invalid read buffer size %d", c.ReadBufferSize)
	}
	if c.Timestamps && c.TimestampInterval <= 0 {
		return fmt.Errorf("timestamp interval must be positive, is %s", c.TimestampInterval)
	}
	switch c.Backing {
	case backing.KindMemory, backing.KindFile, backing.KindBolt:
	default:
		return fmt.Errorf("unknown backing '%s'", c.Backing)
	}
	if c.Backing != backing.KindMemory && c.DataPath == "" {
		return fmt.Errorf("backing '%s' needs a data path", c.Backing)
	}
	if c.SnapshotEnabled() {
		if _, err := snapshot.CompressorFor(c.SnapshotCompression); err != nil {
			return err
		}
	}
	return nil
}

// Addr returns address to listen on
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Pretty returns configuration as indented, human-readable JSON.
// Secrets are not included.
func (c *Config) Pretty() []byte {
	d, err := json.Marshal(c)
	if err != nil {
		// can't happen, all fields are simple
		panic(err)
	}
	return pretty.Pretty(d)
}
