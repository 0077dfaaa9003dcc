package config

import (
	"strings"

	"github.com/spf13/viper"
)

type SchemaConfig struct {
	// DefinitionsPath points at a JSON file of model definitions. Empty disables validation.
	DefinitionsPath string
}

func LoadSchemaConfig() (SchemaConfig, error) {
	return LoadSchemaConfigFrom(viper.GetViper())
}

func LoadSchemaConfigFrom(v *viper.Viper) (SchemaConfig, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // enable overwrite envs

	if err := readInConfig(v); err != nil {
		return SchemaConfig{}, err
	}

	return SchemaConfig{
		DefinitionsPath: v.GetString("schema.definitions"),
	}, nil
}
