package logger

import "os"

// SetupLogger replaces the default logger. Logs go to stderr so command
// output on stdout stays machine readable. Unknown levels fall back to info.
func SetupLogger(logLevel string, logJSON, logSource bool) error {
	level := LogLevel(logLevel)
	switch level {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel, DisabledLevel:
	default:
		level = InfoLevel
	}
	return Init(&Config{
		Level:      level,
		Output:     os.Stderr,
		JSON:       logJSON,
		AddSource:  logSource,
		TimeFormat: "15:04:05",
	})
}
