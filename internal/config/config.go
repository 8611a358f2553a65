package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Defaults used when a field is absent from the config file.
const (
	DefaultPageSize   = 4096
	DefaultPoolSize   = 128
	DefaultReplacer   = "LRUReplacer"
	DefaultLRUKArg    = 2
	DefaultStorageDir = "./data"
)

// Config is the process-wide configuration record. It is read once at startup
// and threaded through the disk manager, buffer pool and table handles; the
// values never change afterwards.
type Config struct {
	Storage struct {
		Dir      string `mapstructure:"dir"`
		PageSize int    `mapstructure:"page_size"`
	} `mapstructure:"storage"`
	Buffer struct {
		PoolSize int    `mapstructure:"pool_size"`
		Replacer string `mapstructure:"replacer"`
		LRUKArg  int    `mapstructure:"lru_k"`
	} `mapstructure:"buffer"`
}

// Default returns a Config filled with the package defaults.
func Default() *Config {
	var cfg Config
	cfg.Storage.Dir = DefaultStorageDir
	cfg.Storage.PageSize = DefaultPageSize
	cfg.Buffer.PoolSize = DefaultPoolSize
	cfg.Buffer.Replacer = DefaultReplacer
	cfg.Buffer.LRUKArg = DefaultLRUKArg
	return &cfg
}

// Load reads a YAML config file from path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("storage.dir", DefaultStorageDir)
	v.SetDefault("storage.page_size", DefaultPageSize)
	v.SetDefault("buffer.pool_size", DefaultPoolSize)
	v.SetDefault("buffer.replacer", DefaultReplacer)
	v.SetDefault("buffer.lru_k", DefaultLRUKArg)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
