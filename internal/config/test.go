package config

import "github.com/caarlos0/env/v11"

// TestConfig drives the store tests; they skip when TEST_POSTGRES_DSN is unset.
type TestConfig struct {
	TestPostgresDSN  string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
	TestSchemaPrefix string `env:"TEST_SCHEMA_PREFIX" envDefault:"test"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}
