// Package logger provides structured logging for mira using zerolog.
//
// Loggers are scoped per component and carry structured fields:
//
//	log := logger.WithComponent("discovery")
//	log.Info("engines reconciled", logger.Fields("added", 2, "removed", 1))
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
package logger
