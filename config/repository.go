package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/world-in-progress/docrepo/core/logger"
)

// Repository drivers selectable through repository.driver.
const (
	DriverCollection = "collection"
	DriverMapper     = "mapper"
)

type RepositoryConfig struct {
	Driver      string
	IDAttr      string
	MaxPageSize int64
	LogLevel    string
}

func LoadRepositoryConfig() (RepositoryConfig, error) {
	return LoadRepositoryConfigFrom(viper.GetViper())
}

// LoadRepositoryConfigFrom reads the repository.* and log.* keys and applies the log level.
func LoadRepositoryConfigFrom(v *viper.Viper) (RepositoryConfig, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("repository.driver", DriverCollection)
	v.SetDefault("repository.id_attr", "_id")
	v.SetDefault("repository.max_page_size", 50)
	v.SetDefault("log.level", "info")

	if err := readInConfig(v); err != nil {
		return RepositoryConfig{}, err
	}

	cfg := RepositoryConfig{
		Driver:      v.GetString("repository.driver"),
		IDAttr:      v.GetString("repository.id_attr"),
		MaxPageSize: v.GetInt64("repository.max_page_size"),
		LogLevel:    v.GetString("log.level"),
	}

	switch cfg.Driver {
	case DriverCollection, DriverMapper:
	default:
		return cfg, fmt.Errorf("unknown repository driver %q", cfg.Driver)
	}
	if cfg.MaxPageSize < 0 {
		return cfg, fmt.Errorf("repository.max_page_size must not be negative, got %d", cfg.MaxPageSize)
	}

	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return cfg, fmt.Errorf("invalid log.level: %w", err)
	}
	return cfg, nil
}
