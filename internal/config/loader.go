package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"narengine/internal/common/fsutil"
	"narengine/pkg/types"
)

// Config is the on-disk configuration for narctl: the engine settings plus
// the diagnostics listener and model directory.
type Config struct {
	Engine    types.Config `json:"engine" yaml:"engine" toml:"engine"`
	Addr      string       `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir string       `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{Engine: types.DefaultConfig(), Addr: "127.0.0.1:9090", ModelsDir: "models"}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
// Keys absent from the file keep their Default values; '~' in paths is
// expanded.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Engine.ModelPath, err = fsutil.ExpandHome(cfg.Engine.ModelPath); err != nil {
		return cfg, err
	}
	if cfg.Engine.LogFilePath, err = fsutil.ExpandHome(cfg.Engine.LogFilePath); err != nil {
		return cfg, err
	}
	if cfg.ModelsDir, err = fsutil.ExpandHome(cfg.ModelsDir); err != nil {
		return cfg, err
	}
	return cfg, nil
}
