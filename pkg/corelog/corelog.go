// Package corelog provides the leveled, component-tagged logger used across
// the agent core. It mirrors a conventional small Go logger: a package-level
// singleton, a JSON file sink, and a human-readable stdout line.
package corelog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var levelNames = map[Level]string{
	Debug: "DEBUG",
	Info:  "INFO",
	Warn:  "WARN",
	Error: "ERROR",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return "UNKNOWN"
}

var (
	mu           sync.RWMutex
	currentLevel = Info
	sink         *os.File
)

// SetLevel changes the minimum level that reaches either sink.
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
}

// EnableFileLogging appends JSON-line entries to filePath in addition to the
// human-readable stdout line. Passing an empty path disables it.
func EnableFileLogging(filePath string) error {
	mu.Lock()
	defer mu.Unlock()
	if sink != nil {
		sink.Close()
		sink = nil
	}
	if filePath == "" {
		return nil
	}
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("corelog: open log file: %w", err)
	}
	sink = f
	return nil
}

// Entry is the shape written to the JSON file sink.
type Entry struct {
	Level     string         `json:"level"`
	Timestamp string         `json:"timestamp"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

func log(level Level, component, message string, fields map[string]any) {
	mu.RLock()
	skip := level < currentLevel
	f := sink
	mu.RUnlock()
	if skip {
		return
	}

	entry := Entry{
		Level:     level.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Component: component,
		Message:   message,
		Fields:    fields,
	}

	if f != nil {
		if data, err := json.Marshal(entry); err == nil {
			f.Write(append(data, '\n'))
		}
	}

	var fieldStr string
	if len(fields) > 0 {
		fieldStr = " " + formatFields(fields)
	}
	var comp string
	if component != "" {
		comp = " " + component + ":"
	}
	fmt.Fprintf(os.Stdout, "[%s] [%s]%s %s%s\n", entry.Timestamp, entry.Level, comp, message, fieldStr)
}

func formatFields(fields map[string]any) string {
	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Component returns a logger bound to a fixed component tag, the idiom used
// by every package in this module (corelog.Component("planner")).
type Logger struct {
	component string
}

func Component(name string) Logger {
	return Logger{component: name}
}

func (l Logger) Debug(message string)                           { log(Debug, l.component, message, nil) }
func (l Logger) Debugf(message string, fields map[string]any)   { log(Debug, l.component, message, fields) }
func (l Logger) Info(message string)                            { log(Info, l.component, message, nil) }
func (l Logger) Infof(message string, fields map[string]any)    { log(Info, l.component, message, fields) }
func (l Logger) Warn(message string)                            { log(Warn, l.component, message, nil) }
func (l Logger) Warnf(message string, fields map[string]any)    { log(Warn, l.component, message, fields) }
func (l Logger) Error(message string)                           { log(Error, l.component, message, nil) }
func (l Logger) Errorf(message string, fields map[string]any)   { log(Error, l.component, message, fields) }
