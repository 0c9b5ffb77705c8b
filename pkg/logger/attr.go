package logger

import (
	"log/slog"
	"net/url"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
func UserID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("user_id", id)
}

// Endpoint records only the host of a push endpoint under the key "endpoint".
// The path of a push endpoint is a bearer capability and is never logged.
func Endpoint(endpoint string) slog.Attr {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return slog.String("endpoint", "invalid")
	}
	return slog.String("endpoint", u.Host)
}

// StatusCode records an HTTP status code under the key "status_code".
func StatusCode(code int) slog.Attr {
	return slog.Int("status_code", code)
}

// Result records a delivery outcome under the key "result".
func Result(result string) slog.Attr {
	return slog.String("result", result)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Count records a counter value under the given key.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}
