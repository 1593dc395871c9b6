// Package logger provides structured logging for the traversal engine
// using zerolog.
//
// Loggers are component scoped. The engine tags every record with the
// traversal id and, where relevant, the strategy, step or channel name so
// plan rewrites and remote submissions can be followed end to end.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("traversal").WithTraversal(id)
//	log.Debug("strategy applied", logger.Fields(logger.FieldStrategy, name))
package logger
