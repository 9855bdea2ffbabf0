package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the base directory.
const FileName = ".xcodeproj-mcp.yaml"

// Config controls where projects are resolved, where the edit journal lives,
// and how the server behaves.
type Config struct {
	BaseDir         string `yaml:"base_dir"`                                                   // Directory relative project paths resolve against.
	PersistenceDir  string `yaml:"persistence_dir" validate:"required"`                        // Directory holding the journal database.
	DisableJournal  bool   `yaml:"disable_journal"`                                            // Skip journaling and undo snapshots.
	MaxSnapshots    int    `yaml:"max_snapshots" validate:"gte=0"`                             // Snapshots kept per project; 0 keeps all.
	DisableWatch    bool   `yaml:"disable_watch"`                                              // Skip external-edit detection.
	LogLevel        string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"` // Minimum log level.
	HTTPAddr        string `yaml:"http_addr" validate:"omitempty,hostname_port"`               // Listen address for serve --http.
	FrameworksGroup string `yaml:"frameworks_group" validate:"required"`                       // Navigator group for new framework references.
}

// DefaultConfig is used when no config file is found.
var DefaultConfig = Config{
	PersistenceDir:  ".xcodeproj-mcp",
	MaxSnapshots:    20,
	LogLevel:        "info",
	HTTPAddr:        "127.0.0.1:8080",
	FrameworksGroup: "Frameworks",
}

var validate = validator.New()

// LoadConfig reads FileName from rootDir. A missing file yields the defaults.
func LoadConfig(rootDir string) (*Config, error) {
	return LoadFile(filepath.Join(rootDir, FileName))
}

// LoadFile reads a config file. A missing file yields the defaults. Fields
// left out of the file keep their default values. A file that cannot be
// parsed or fails validation is an error.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// JournalDir returns the persistence directory resolved against rootDir.
func (c *Config) JournalDir(rootDir string) string {
	if filepath.IsAbs(c.PersistenceDir) {
		return c.PersistenceDir
	}
	return filepath.Join(rootDir, c.PersistenceDir)
}

// ResolveBase returns the directory relative project paths resolve against:
// BaseDir when set (itself resolved against rootDir), otherwise rootDir.
func (c *Config) ResolveBase(rootDir string) string {
	switch {
	case c.BaseDir == "":
		return rootDir
	case filepath.IsAbs(c.BaseDir):
		return c.BaseDir
	default:
		return filepath.Join(rootDir, c.BaseDir)
	}
}
