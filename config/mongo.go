package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"github.com/world-in-progress/docrepo/core/logger"
)

// Environment variables understood in addition to the mongo.* keys.
const (
	DBURI    = "DB_URI"
	DBScheme = "DB_SCHEME"
	DBUser   = "DB_USER"
	DBPW     = "DB_PW"
	DBHost   = "DB_HOST"
	DBPort   = "DB_PORT"
	DBOpts   = "DB_OPTS"
	DBName   = "DB_NAME"
)

type MongoConfig struct {
	URI          string        `mapstructure:"uri"`
	Database     string        `mapstructure:"database"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ConnectRetry time.Duration `mapstructure:"connect_retry"`
	MaxPoolSize  uint64        `mapstructure:"max_pool_size"`
	WriteConcern string        `mapstructure:"write_concern"`
	Journal      bool          `mapstructure:"journal"`
}

// RedactedURI returns the URI with any password masked, suitable for logs.
func (c MongoConfig) RedactedURI() string {
	u, err := url.Parse(c.URI)
	if err != nil {
		return "<unparseable uri>"
	}
	return u.Redacted()
}

// LoadEnv loads .env style files into the process environment. Missing files are ignored.
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// LoadMongoConfig reads the mongo settings from the global viper instance.
func LoadMongoConfig() MongoConfig {
	if err := LoadEnv(); err != nil {
		logger.Warn("%v", err)
	}

	cfg, err := LoadMongoConfigFrom(viper.GetViper())
	if err != nil {
		logger.Error("failed to load mongo config, use defaults: %v", err)
		return DefaultMongoConfig()
	}
	return cfg
}

func DefaultMongoConfig() MongoConfig {
	return MongoConfig{
		URI:          "mongodb://localhost:27017",
		Database:     "testdb",
		Timeout:      10 * time.Second,
		ConnectRetry: 30 * time.Second,
		MaxPoolSize:  100,
		WriteConcern: "majority",
		Journal:      true,
	}
}

func LoadMongoConfigFrom(v *viper.Viper) (MongoConfig, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // enable overwrite envs

	// default
	def := DefaultMongoConfig()
	v.SetDefault("mongo.uri", def.URI)
	v.SetDefault("mongo.database", def.Database)
	v.SetDefault("mongo.timeout", def.Timeout.String())
	v.SetDefault("mongo.connect_retry", def.ConnectRetry.String())
	v.SetDefault("mongo.max_pool_size", def.MaxPoolSize)
	v.SetDefault("mongo.write_concern", def.WriteConcern)
	v.SetDefault("mongo.journal", def.Journal)

	if err := readInConfig(v); err != nil {
		return MongoConfig{}, err
	}

	var settings struct {
		Mongo MongoConfig `mapstructure:"mongo"`
	}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		secondsToDurationHook(),
	))
	if err := v.Unmarshal(&settings, hook); err != nil {
		return MongoConfig{}, fmt.Errorf("failed to decode mongo config: %w", err)
	}
	cfg := settings.Mongo

	// DB_* variables win over the mongo.* keys
	u, dbName, found, err := buildDbURL(v)
	if err != nil {
		return MongoConfig{}, err
	}
	if found {
		cfg.URI = u.String()
		if dbName != "" {
			cfg.Database = dbName
		}
	}

	return cfg, nil
}

// secondsToDurationHook keeps plain integer timeouts meaning seconds.
func secondsToDurationHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		durationType := reflect.TypeOf(time.Duration(0))
		if to != durationType || from == durationType {
			return data, nil
		}
		switch from.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return time.Duration(cast.ToInt64(data)) * time.Second, nil
		}
		return data, nil
	}
}

func readInConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logger.Debug("no config file found, use default configuration: %v", err)
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// buildDbURL assembles the connection URL either from DB_URI or from its parts.
func buildDbURL(v *viper.Viper) (*url.URL, string, bool, error) {
	for _, key := range []string{DBURI, DBScheme, DBUser, DBPW, DBHost, DBPort, DBOpts, DBName} {
		if err := v.BindEnv("db."+strings.ToLower(strings.TrimPrefix(key, "DB_")), key); err != nil {
			return nil, "", false, err
		}
	}

	if raw := v.GetString("db.uri"); raw != "" {
		dbURL, err := url.Parse(raw)
		if err != nil {
			return nil, "", false, fmt.Errorf("invalid %s: %w", DBURI, err)
		}
		return dbURL, strings.TrimPrefix(dbURL.Path, "/"), true, nil
	}

	host := v.GetString("db.host")
	if host == "" {
		return nil, "", false, nil
	}
	if port := v.GetString("db.port"); port != "" {
		host = fmt.Sprintf("%s:%s", host, port)
	}

	scheme := v.GetString("db.scheme")
	if scheme == "" {
		scheme = "mongodb"
	}

	dbName := v.GetString("db.name")
	dbURL := &url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     "/" + dbName,
		RawQuery: v.GetString("db.opts"),
	}
	if user := v.GetString("db.user"); user != "" {
		dbURL.User = url.UserPassword(user, v.GetString("db.pw"))
	}
	return dbURL, dbName, true, nil
}
