// Package config loads and validates engine configuration.
//
// Values come from a YAML file, then a .env file, then the process
// environment. Environment variables are read when they carry the upper-cased
// service name as prefix:
//
//	TRAVERSE_STRATEGIES_PROFILE=production
//	TRAVERSE_SHARDS_MAX_PARALLEL=8
//
// # Usage
//
//	cfg, err := config.Load("traverse")
package config
