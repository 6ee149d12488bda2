// Package config loads configuration from config.yml, .env files,
// environment variables and command-line flags using Viper.
//
// Precedence, lowest to highest: config file, .env, process environment
// (WAVSCRIBE_ prefix), explicitly set command-line flags.
//
// # Usage
//
//	var cfg AppConfig
//	err := config.LoadConfig("wavscribe", &cfg,
//	    config.WithConfigFile(path),
//	    config.WithFlag("engine.url", flags.Lookup("engine-url")))
//
// Environment variables map onto nested keys by splitting on underscores,
// e.g. WAVSCRIBE_ENGINE_URL sets engine.url.
package config
