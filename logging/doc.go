// Package logging provides a minimal logging interface and adapters for the
// exchange simulator.
//
// The Logger interface defines the four leveled methods (Debug, Info, Warn,
// Error) that the orchestrator, capability and storage layers use. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - SimLogger, a richer slog-backed logger with simulation/component context
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	orch, err := exchange.New(capability, func(o *exchange.Options) { o.Logger = logger })
package logging
