package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/bitpacket/internal/logging"
	"github.com/danmuck/bitpacket/internal/protocol/packet"
)

// Config is the resolved runtime configuration for bitsctl.
type Config struct {
	Limits packet.Limits
	Batch  BatchConfig
	Server ServerConfig
	Log    LogConfig
}

type BatchConfig struct {
	Workers int
}

type ServerConfig struct {
	Name         string
	Addr         string
	CorsOrigins  []string
	MaxBodyBytes int64
	// AuthToken, when set, is required as a bearer token on /v1 routes.
	AuthToken string
}

type LogConfig struct {
	Level string
}

func Default() Config {
	return Config{
		Limits: packet.DefaultLimits(),
		Batch:  BatchConfig{Workers: 0},
		Server: ServerConfig{
			Name:         "bitsctl",
			Addr:         ":9200",
			CorsOrigins:  []string{"http://localhost:3000"},
			MaxBodyBytes: 1 << 20,
		},
		Log: LogConfig{Level: "info"},
	}
}

type fileConfig struct {
	Limits fileLimits `toml:"limits"`
	Batch  fileBatch  `toml:"batch"`
	Server fileServer `toml:"server"`
	Log    fileLog    `toml:"log"`
}

type fileLimits struct {
	MaxBits  int `toml:"max_bits"`
	MaxDepth int `toml:"max_depth"`
}

type fileBatch struct {
	Workers int `toml:"workers"`
}

type fileServer struct {
	Name         string   `toml:"name"`
	Addr         string   `toml:"addr"`
	CorsOrigins  []string `toml:"cors_origins"`
	MaxBodyBytes int64    `toml:"max_body_bytes"`
	AuthToken    string   `toml:"auth_token"`
}

type fileLog struct {
	Level string `toml:"level"`
}

// Load overlays the keys present in the TOML file at path onto Default and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config parse failed (%s): unknown key %s", path, undecoded[0])
	}

	if meta.IsDefined("limits", "max_bits") {
		cfg.Limits.MaxBits = raw.Limits.MaxBits
	}
	if meta.IsDefined("limits", "max_depth") {
		cfg.Limits.MaxDepth = raw.Limits.MaxDepth
	}
	if meta.IsDefined("batch", "workers") {
		cfg.Batch.Workers = raw.Batch.Workers
	}
	if meta.IsDefined("server", "name") {
		cfg.Server.Name = strings.TrimSpace(raw.Server.Name)
	}
	if meta.IsDefined("server", "addr") {
		cfg.Server.Addr = strings.TrimSpace(raw.Server.Addr)
	}
	if meta.IsDefined("server", "cors_origins") {
		cfg.Server.CorsOrigins = normalizeList(raw.Server.CorsOrigins)
	}
	if meta.IsDefined("server", "max_body_bytes") {
		cfg.Server.MaxBodyBytes = raw.Server.MaxBodyBytes
	}
	if meta.IsDefined("server", "auth_token") {
		cfg.Server.AuthToken = strings.TrimSpace(raw.Server.AuthToken)
	}
	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if cfg.Limits.MaxBits < 0 {
		return fmt.Errorf("limits.max_bits must not be negative")
	}
	if cfg.Limits.MaxDepth < 0 {
		return fmt.Errorf("limits.max_depth must not be negative")
	}
	if cfg.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must not be negative")
	}
	if strings.TrimSpace(cfg.Server.Name) == "" {
		return fmt.Errorf("server.name is required")
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return fmt.Errorf("server.addr is required")
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	if cfg.Log.Level != "" {
		if _, ok := logging.ParseLevel(cfg.Log.Level); !ok {
			return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
		}
	}
	return nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
