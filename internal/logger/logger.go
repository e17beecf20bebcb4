package logger

import (
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

type Logger struct {
	level LogLevel
}

type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

var defaultLogger = &Logger{level: INFO}

func New(level LogLevel) *Logger {
	return &Logger{level: level}
}

func SetLevel(level LogLevel) {
	defaultLogger.level = level
}

func (l *Logger) log(level LogLevel, message string, fields map[string]interface{}) {
	if level < l.level {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level.String(),
		Message:   message,
		Fields:    sanitizeFields(fields),
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		log.Printf("Failed to marshal log entry: %v", err)
		return
	}

	log.Println(string(jsonBytes))
}

func (l *Logger) Debug(message string, fields ...map[string]interface{}) {
	l.log(DEBUG, message, mergeFields(fields...))
}

func (l *Logger) Info(message string, fields ...map[string]interface{}) {
	l.log(INFO, message, mergeFields(fields...))
}

func (l *Logger) Warn(message string, fields ...map[string]interface{}) {
	l.log(WARN, message, mergeFields(fields...))
}

func (l *Logger) Error(message string, fields ...map[string]interface{}) {
	l.log(ERROR, message, mergeFields(fields...))
}

// Package-level convenience functions
func Debug(message string, fields ...map[string]interface{}) {
	defaultLogger.Debug(message, fields...)
}

func Info(message string, fields ...map[string]interface{}) {
	defaultLogger.Info(message, fields...)
}

func Warn(message string, fields ...map[string]interface{}) {
	defaultLogger.Warn(message, fields...)
}

func Error(message string, fields ...map[string]interface{}) {
	defaultLogger.Error(message, fields...)
}

func mergeFields(fieldMaps ...map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	for _, fields := range fieldMaps {
		for k, v := range fields {
			result[k] = v
		}
	}
	return result
}

// License keys and the shared secret are credentials; both must stay
// out of logs even at DEBUG.
var sensitiveKeys = []string{
	"secret", "token", "password", "license_key", "key",
	"signature", "authorization", "auth", "session",
}

func sanitizeFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	sanitized := make(map[string]interface{})

	for k, v := range fields {
		keyLower := strings.ToLower(k)

		isSensitive := false
		for _, sensitive := range sensitiveKeys {
			if strings.Contains(keyLower, sensitive) {
				isSensitive = true
				break
			}
		}

		if !isSensitive {
			sanitized[k] = v
			continue
		}

		if str, ok := v.(string); ok && len(str) > 8 {
			sanitized[k] = str[:3] + "..." + str[len(str)-3:]
		} else {
			sanitized[k] = "[REDACTED]"
		}
	}

	return sanitized
}

func init() {
	// Reduce noise when running under go test.
	if os.Getenv("GO_ENV") == "test" || strings.Contains(os.Args[0], ".test") {
		SetLevel(WARN)
		return
	}

	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		SetLevel(DEBUG)
	case "WARN":
		SetLevel(WARN)
	case "ERROR":
		SetLevel(ERROR)
	default:
		SetLevel(INFO)
	}
}
