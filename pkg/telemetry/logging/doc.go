// Package logging builds the process logger.
//
// Every component logs through a *slog.Logger. New turns the telemetry
// logging section into one:
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	slog.SetDefault(logger)
//
// The handler returned by New is wrapped in a ContextHandler, so a request
// ID or command source stored with WithRequestID and WithSource, and the
// active OpenTelemetry span, show up on records logged with the *Context
// methods:
//
//	ctx = logging.WithRequestID(ctx, id)
//	logger.WarnContext(ctx, "command blocked", "command", cmd)
package logging
