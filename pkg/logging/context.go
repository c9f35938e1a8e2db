package logging

import (
	"log/slog"
)

// WithRun creates a logger tagged with an optimisation run id.
// Every record emitted while planning one query carries the same id.
//
// Example:
//
//	log := logging.WithRun(runID)
//	log.Debug("subset level done", "size", k, "entries", n)
func WithRun(runID string) *slog.Logger {
	return GetLogger().With("run_id", runID)
}

// WithTable creates a logger with table context.
//
// Example:
//
//	log := logging.WithTable("orders")
//	log.Debug("access candidates", "count", 3)
func WithTable(tableName string) *slog.Logger {
	return GetLogger().With("table", tableName)
}

// WithQuery creates a logger carrying the shape of the query being planned.
func WithQuery(tables, joins int) *slog.Logger {
	return GetLogger().With("tables", tables, "joins", joins)
}

// WithComponent creates a logger with component/subsystem context.
//
// Example:
//
//	log := logging.WithComponent("optimizer")
//	log.Info("plan selected")
func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}

// WithError creates a logger with error context.
// Use this when logging errors to include the error in structured format.
//
// Example:
//
//	log := logging.WithError(err)
//	log.Error("planning failed", "query", name)
func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err.Error())
}
