// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments (development vs production)
// and integrates with the Fiber web framework used by the serve command.
//
// # Context Awareness
//
// WithRayID extracts the RayID from a Fiber context and attaches it to the log entry,
// so all logs of one HTTP request can be correlated. WithRun does the same for a
// reconciliation run: every diagnostic emitted while a source is processed carries
// the run id and the source name.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Encoding: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Sync started")
//
//	runLog := logger.WithRun(log, report.ID, "cloud-a")
//	runLog.Warn("Host already parsed", zap.String("name", name))
package logger
