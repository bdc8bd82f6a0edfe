// Package config loads service configuration from a YAML file, .env files
// and the process environment using Viper.
//
// Environment variables override file values. An upper-case variable is
// bound to every nested key it could spell, so DISCOVERY_SWARM_NETWORKS
// reaches discovery.swarm.networks:
//
//	var cfg Config
//	err := config.LoadConfig("mira", &cfg)
package config
