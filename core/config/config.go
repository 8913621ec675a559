package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrParsingConfig is returned when environment variables cannot be parsed
// into the target struct.
var ErrParsingConfig = errors.New("failed to parse config")

var (
	dotenvOnce sync.Once

	cacheMu sync.Mutex
	cache   = map[reflect.Type]any{}
)

func loadDotenv() {
	dotenvOnce.Do(func() {
		// A missing .env file is not an error
		_ = godotenv.Load()
	})
}

// Load populates cfg from the environment. The first successful load of a type
// is cached and copied into every later call for the same type.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil target", ErrParsingConfig)
	}

	loadDotenv()

	typ := reflect.TypeFor[T]()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cached, ok := cache[typ]; ok {
		*cfg = cached.(T)
		return nil
	}

	var loaded T
	if err := env.Parse(&loaded); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	cache[typ] = loaded
	*cfg = loaded
	return nil
}

// MustLoad is like Load but panics on failure.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}

// reset clears the cache. Used by tests.
func reset() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = map[reflect.Type]any{}
}
