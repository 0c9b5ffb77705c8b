// Package logger builds the *slog.Logger used across pushkit and provides the
// attribute constructors that keep log keys consistent between packages.
//
// New creates a JSON (default) or text logger configured by functional
// options. The handler is wrapped with a decorator that copies request-scoped
// values, such as the delivery batch identifier, from the context into every
// record:
//
//	log := logger.New(logger.WithEnvironment("production", "pushkit"))
//	ctx := logger.WithBatchID(context.Background(), uuid.NewString())
//	log.InfoContext(ctx, "push delivered",
//	    logger.Endpoint(sub.Endpoint),
//	    logger.StatusCode(201),
//	)
//
// Endpoint deliberately logs only the relay host: push endpoint paths are
// capability URLs and must not end up in log storage.
package logger
