package pushstore

import "errors"

var (
	ErrFailedToParseDBConfig        = errors.New("failed to parse db config")
	ErrFailedToOpenDBConnection     = errors.New("failed to open db connection")
	ErrFailedToApplyMigrations      = errors.New("failed to apply migrations")
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redis did not become ready within the given time period")
	ErrHealthcheckFailed            = errors.New("healthcheck failed, connection is not available")
	ErrCorruptRecord                = errors.New("stored subscription record is corrupt")
)
