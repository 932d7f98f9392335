package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Template renders Default as a TOML document.
func Template() (string, error) {
	cfg := Default()
	doc := fileConfig{
		Limits: fileLimits{MaxBits: cfg.Limits.MaxBits, MaxDepth: cfg.Limits.MaxDepth},
		Batch:  fileBatch{Workers: cfg.Batch.Workers},
		Server: fileServer{
			Name:         cfg.Server.Name,
			Addr:         cfg.Server.Addr,
			CorsOrigins:  cfg.Server.CorsOrigins,
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
			AuthToken:    cfg.Server.AuthToken,
		},
		Log: fileLog{Level: cfg.Log.Level},
	}
	out, err := toml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("render config template: %w", err)
	}
	return string(out), nil
}

func WriteTemplate(path string, overwrite bool) error {
	template, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
