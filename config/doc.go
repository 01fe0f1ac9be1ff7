// Package config loads bulkflow configuration from a YAML file, a .env file
// and the process environment using Viper.
//
// The config file is taken from --config when given, otherwise from the
// first of ./config.yml, ./cmd/<app>/config.yml, ./config/config.yml and
// ~/.<app>/config.yml that exists. Environment variables carrying the
// application prefix override file values:
//
//	BULKFLOW_INGEST_BATCH_SIZE=10  ->  ingest.batch_size: 10
//
// # Usage
//
//	var cfg Config
//	if err := config.LoadConfig("bulkflow", &cfg, config.WithConfigFile(path)); err != nil {
//	    return err
//	}
package config
