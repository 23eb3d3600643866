// Package logging provides structured logging with per-module log level configuration.
//
// Every module logger forwards to one shared output chain: stdout (text
// or json) when it is connected, the systemd journal when available, and
// an in-memory ring buffer that backs the log API and SSE log stream.
// Loggers obtained before Initialize pick up the configured levels and
// outputs once it runs.
//
// # Usage
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"bus":      "debug",
//			"controls": "debug",
//		},
//	})
//
//	logger := logging.GetLogger("power")
//	logger.Info("sensor power", "state", "on")
//
// Levels can be changed at runtime with SetLevel.
//
// # Viewing Logs
//
//	journalctl -t sensornode -f
//	journalctl -t sensornode MODULE=bus
//
// # Configuration
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	bus = "debug"
//	stream = "warn"
package logging
