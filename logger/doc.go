// Package logger provides structured logging for bulkflow using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers carrying pipeline fields (batch id, endpoint,
// branch).
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("ingest")
//	log.Info("batch sent", logger.Fields(logger.FieldEndpoint, "localhost:9200"))
package logger
