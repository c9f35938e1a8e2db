// Package logging provides a process-wide structured logger for the planner.
//
// The package wraps [log/slog] and exposes a single global logger instance
// that is initialized once and then retrieved via GetLogger. All subsystems
// should obtain a logger through this package rather than constructing their
// own slog.Logger values, so that log level and output destination are
// controlled from a single place.
//
// # Initialisation
//
// Call Init (or InitDefault for sensible defaults) once at program startup:
//
//	if err := logging.Init(logging.Config{Level: logging.LevelDebug}); err != nil {
//	    log.Fatal(err)
//	}
//
// InitDefault writes INFO-level text logs to stdout.
//
// Setting Config.SeqURL fans every record out to a Seq server as well. When
// the server cannot be reached only the local handler is used.
//
// # Retrieving the logger
//
//	logger := logging.GetLogger()
//	logger.Info("plan selected", "cost", cost)
//
// If GetLogger is called before Init, a default logger is created lazily
// (via sync.Once) so that packages that log during init are safe.
//
// # Context helpers
//
// WithRun, WithTable, WithQuery, WithComponent and WithError return child
// loggers pre-populated with structured fields.
package logging
