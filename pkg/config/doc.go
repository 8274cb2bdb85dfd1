// Package config loads environment-driven configuration structs.
//
// Structs declare their variables with caarlos0/env tags:
//
//	type Config struct {
//		HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// A .env file in the working directory is applied once before the first
// Load. Each struct type is parsed a single time and cached.
package config
