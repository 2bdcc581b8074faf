// Package conf defines s3mock's on-disk configuration file and the
// process-wide Config instance loaded from it.
package conf

import (
	"path/filepath"

	"github.com/dongdio/s3mock/global"
)

// Scheme configures the two HTTP listeners the emulator binds.
type Scheme struct {
	Address   string `json:"address"`
	HttpPort  int    `json:"http_port"`
	HttpsPort int    `json:"https_port"`
	CertFile  string `json:"cert_file"`
	KeyFile   string `json:"key_file"`
	// EnableH2c serves HTTP/2 over cleartext on the HTTP listener, for
	// clients that negotiate h2c instead of falling back to HTTP/1.1.
	EnableH2c bool `json:"enable_h2c"`
}

// LogConfig configures logrus + lumberjack log rotation.
type LogConfig struct {
	Enable     bool   `json:"enable"`
	Name       string `json:"name"`
	MaxSize    int    `json:"max_size"`
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"`
	Compress   bool   `json:"compress"`
}

// Config is the top-level configuration document, persisted as
// config.json in the data directory.
type Config struct {
	// Root is the filesystem path for state. When empty, the store
	// derives a directory under os.TempDir named
	// "s3mockFileStore<epoch-ms>" at startup; the derived path is not
	// written back here.
	Root string `json:"root"`
	// RetainFilesOnExit skips deleting Root on clean shutdown.
	RetainFilesOnExit bool `json:"retain_files_on_exit"`
	// InitialBuckets are created empty at startup if they don't exist.
	InitialBuckets []string `json:"initial_buckets"`
	// ValidKmsKeys populates the KMS key registry allow-list.
	ValidKmsKeys []string `json:"valid_kms_keys"`
	// Region is advertised in LocationConstraint responses.
	Region string `json:"region"`
	// LifecycleSweepIntervalSeconds sets how often the background
	// lifecycle sweep runs. Zero disables the sweep entirely.
	LifecycleSweepIntervalSeconds int `json:"lifecycle_sweep_interval_seconds"`

	Scheme Scheme    `json:"scheme"`
	Log    LogConfig `json:"log"`
}

// DefaultConfig returns the configuration written the first time
// s3mock runs against a fresh data directory.
func DefaultConfig() *Config {
	logPath := filepath.Join(global.DataDir, "log/s3mock.log")
	return &Config{
		Root:                          "",
		RetainFilesOnExit:             false,
		InitialBuckets:                nil,
		ValidKmsKeys:                  nil,
		Region:                        "us-east-1",
		LifecycleSweepIntervalSeconds: 3600,
		Scheme: Scheme{
			Address:   "0.0.0.0",
			HttpPort:  9090,
			HttpsPort: -1,
			EnableH2c: false,
		},
		Log: LogConfig{
			Enable:     true,
			Name:       logPath,
			MaxSize:    50,
			MaxBackups: 10,
			MaxAge:     28,
		},
	}
}
