package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ngaut/log"
	"github.com/pingcap-incubator/tempstore/kv/util/typeutil"
	"github.com/pingcap/errors"
)

type Config struct {
	LogLevel string `toml:"log-level"`

	// Directory the spill files are created in. Empty means os.TempDir().
	TempDir string `toml:"temp-dir"`
	// A staging buffer keeps its ledger in memory until it would grow past this size,
	// then moves it to a temporary file.
	SpillThreshold typeutil.ByteSize `toml:"spill-threshold"`
	// Fingerprint every staged payload and check it again when it is read back.
	VerifyChecksum bool `toml:"verify-checksum"`

	// Maximum number of idle buffers a pool keeps around for reuse.
	PoolCapacity int `toml:"pool-capacity"`

	// Number of objects sent to storage in one write.
	FlushBatchSize int `toml:"flush-batch-size"`
	// Flush throughput in bytes per second, 0 disables throttling.
	FlushRateLimit typeutil.ByteSize `toml:"flush-rate-limit"`

	DBPath string `toml:"db-path"` // Directory to store the data in. Should exist and be writable.
}

func (c *Config) Validate() error {
	if c.SpillThreshold == 0 {
		log.Warnf("spill threshold is 0, every non-empty staging buffer goes to disk")
	}
	if c.PoolCapacity < 0 {
		return fmt.Errorf("pool capacity must not be negative")
	}
	if c.FlushBatchSize <= 0 {
		return fmt.Errorf("flush batch size must be greater than 0")
	}
	if c.TempDir != "" {
		fi, err := os.Stat(c.TempDir)
		if err != nil {
			return errors.Annotatef(err, "temp dir %s", c.TempDir)
		}
		if !fi.IsDir() {
			return fmt.Errorf("temp dir %s is not a directory", c.TempDir)
		}
	}
	return nil
}

// SpillDir returns the directory spill files are created in.
func (c *Config) SpillDir() string {
	if c.TempDir == "" {
		return os.TempDir()
	}
	return c.TempDir
}

const (
	KB uint64 = 1024
	MB uint64 = 1024 * 1024
)

func getLogLevel() (logLevel string) {
	logLevel = "info"
	if l := os.Getenv("LOG_LEVEL"); len(l) != 0 {
		logLevel = l
	}
	return
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel:       getLogLevel(),
		SpillThreshold: typeutil.ByteSize(16 * MB),
		VerifyChecksum: true,
		PoolCapacity:   4,
		FlushBatchSize: 256,
		DBPath:         "/tmp/badger",
	}
}

func NewTestConfig() *Config {
	return &Config{
		LogLevel:       getLogLevel(),
		SpillThreshold: typeutil.ByteSize(64 * KB),
		VerifyChecksum: true,
		PoolCapacity:   2,
		FlushBatchSize: 16,
		DBPath:         "/tmp/badger",
	}
}

// LoadFile overlays the toml file at path on the defaults. Keys the config does not know
// about are rejected so a misspelled option does not silently fall back to its default.
func LoadFile(path string) (*Config, error) {
	conf := NewDefaultConfig()
	meta, err := toml.DecodeFile(path, conf)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, errors.Errorf("config contains undefined item: %s", strings.Join(keys, ", "))
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}
