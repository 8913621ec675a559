// Package config provides type-safe environment variable loading with caching
// using Go generics. Each configuration type is loaded once and cached for
// subsequent calls.
//
// The package loads a .env file from the working directory on first use and
// uses the caarlos0/env library for parsing environment variables into struct
// fields.
//
// Basic usage:
//
//	import "github.com/dmitrymomot/krustie/core/config"
//
//	type AppConfig struct {
//		Addr      string `env:"APP_ADDR" envDefault:":8080"`
//		StaticDir string `env:"APP_STATIC_DIR" envDefault:"./public"`
//		Token     string `env:"APP_TOKEN,required"`
//	}
//
//	func main() {
//		var cfg AppConfig
//
//		// Load with error handling
//		if err := config.Load(&cfg); err != nil {
//			log.Fatal(err)
//		}
//
//		// Or panic on failure (useful for startup)
//		config.MustLoad(&cfg)
//	}
//
// # Caching Behavior
//
// Each configuration type is loaded only once per application lifetime:
//
//	var cfg1 AppConfig
//	config.Load(&cfg1) // Loads from environment
//
//	var cfg2 AppConfig
//	config.Load(&cfg2) // Returns cached value, cfg1 == cfg2
//
// Different types are cached independently, so each component owns its config:
//
//	config.MustLoad(&server.Config{})
//	config.MustLoad(&middleware.RateLimitConfig{})
//
// Failed loads are not cached.
package config
