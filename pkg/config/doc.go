// Package config loads typed configuration from the environment.
//
// It combines github.com/joho/godotenv for .env files with
// github.com/caarlos0/env/v11 for struct tag parsing:
//
//	type Config struct {
//	    Subject string        `env:"VAPID_SUBJECT,required"`
//	    TTL     time.Duration `env:"PUSH_TTL" envDefault:"24h"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
// Every struct type is parsed once per process and served from a cache
// afterwards. Reload and ResetCache exist for tests and for commands that
// change the environment at runtime (for example a --env-file flag read
// through LoadEnv).
//
// Errors are sentinel values for errors.Is: ErrParsingConfig, ErrNilPointer,
// ErrNoEnvFiles and ErrLoadingEnvFile.
package config
