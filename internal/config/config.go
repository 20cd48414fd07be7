package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Board    BoardConfig    `toml:"board"`
	Scan     ScanConfig     `toml:"scan"`
	Server   ServerConfig   `toml:"server"`
	Keys     KeyConfig      `toml:"keys"`
}

type DatabaseConfig struct {
	Path string `toml:"path,omitempty"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

// DevFileConfig controls the workspace-local log file written in dev mode.
type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type BoardConfig struct {
	ShowDescriptions        bool `toml:"show_descriptions"`
	ConfirmQuitWhileGrabbed bool `toml:"confirm_quit_while_grabbed"`
}

// ScanConfig overrides the marker scanner file selection. Empty lists and a zero size limit keep the built-in defaults.
type ScanConfig struct {
	Extensions   []string `toml:"extensions"`
	IgnoreDirs   []string `toml:"ignore_dirs"`
	MaxFileBytes int64    `toml:"max_file_bytes,omitempty"`
}

type ServerConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

type KeyConfig struct {
	Grab   string `toml:"grab"`
	Filter string `toml:"filter"`
	Reload string `toml:"reload"`
}

var logLevels = []string{"debug", "info", "warn", "error", "fatal"}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".kanban/log",
			},
		},
		Board: BoardConfig{
			ShowDescriptions:        true,
			ConfirmQuitWhileGrabbed: false,
		},
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:5437",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Keys: KeyConfig{
			Grab:   "space",
			Filter: "/",
			Reload: "r",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	level := strings.TrimSpace(strings.ToLower(c.Logging.Level))
	if !slices.Contains(logLevels, level) {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	for idx, ext := range c.Scan.Extensions {
		if strings.TrimSpace(ext) == "" {
			return fmt.Errorf("scan.extensions[%d] is blank", idx)
		}
	}
	for idx, dir := range c.Scan.IgnoreDirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			return fmt.Errorf("scan.ignore_dirs[%d] is blank", idx)
		}
		if strings.ContainsAny(dir, `/\`) {
			return fmt.Errorf("scan.ignore_dirs[%d] must be a directory name, got %q", idx, dir)
		}
	}

	if c.Scan.MaxFileBytes < 0 {
		return fmt.Errorf("scan.max_file_bytes must not be negative, got %d", c.Scan.MaxFileBytes)
	}

	if _, _, err := net.SplitHostPort(strings.TrimSpace(c.Server.HTTPBind)); err != nil {
		return fmt.Errorf("invalid server.http_bind %q: %w", c.Server.HTTPBind, err)
	}
	for name, endpoint := range map[string]string{
		"server.api_endpoint": c.Server.APIEndpoint,
		"server.mcp_endpoint": c.Server.MCPEndpoint,
	} {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint == "" || !strings.HasPrefix(endpoint, "/") {
			return fmt.Errorf("%s must start with /: %q", name, endpoint)
		}
	}
	if strings.TrimRight(strings.TrimSpace(c.Server.APIEndpoint), "/") == strings.TrimRight(strings.TrimSpace(c.Server.MCPEndpoint), "/") {
		return errors.New("server.api_endpoint and server.mcp_endpoint must differ")
	}

	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// WriteDefault writes cfg to path unless a file already exists there.
func WriteDefault(path string, cfg Config) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("encode toml: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
