// Package logger provides the leveled logging used across the Lighter session service.
// It writes through the standard `log` package and drops messages below the configured level.
package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
)

// LogLevel is a type representing the logging level.
type LogLevel int32

const (
	// LevelDebug is used for detailed diagnostic output such as SQL statements and poll attempts.
	LevelDebug LogLevel = iota
	// LevelInfo is used for session lifecycle events.
	LevelInfo
	// LevelWarn is used for recoverable anomalies, for example a backend that cannot report live state.
	LevelWarn
	// LevelError is used for failed operations.
	LevelError
	// LevelFatal is used for errors that terminate the process.
	LevelFatal
)

var levelNames = map[LogLevel]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

// String returns the upper-case name of the level.
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LogLevel(%d)", int32(l))
}

var currentLevel atomic.Int32

func init() {
	currentLevel.Store(int32(LevelInfo))
}

// SetLogLevel sets the global log level.
// Valid values are "DEBUG", "INFO", "WARN", "ERROR", "FATAL" (case-insensitive).
// Unknown values fall back to INFO.
func SetLogLevel(level string) {
	for l, name := range levelNames {
		if strings.EqualFold(level, name) {
			currentLevel.Store(int32(l))
			return
		}
	}
	fmt.Printf("Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
	currentLevel.Store(int32(LevelInfo))
}

// GetLogLevel returns the current global log level.
func GetLogLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetOutput redirects log output. Mostly useful in tests.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// Enabled reports whether messages at the given level are currently written.
func Enabled(level LogLevel) bool {
	return GetLogLevel() <= level
}

func logf(level LogLevel, format string, v ...interface{}) {
	if Enabled(level) {
		log.Printf("["+level.String()+"] "+format, v...)
	}
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	logf(LevelDebug, format, v...)
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	logf(LevelInfo, format, v...)
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	logf(LevelWarn, format, v...)
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	logf(LevelError, format, v...)
}

// Fatalf formats and outputs a FATAL level log message, then exits with status 1.
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}
