// Package logging provides component loggers for steady.
//
// File loggers write to ~/.steady/logs/<session-id>-steady.log, or to the
// directory named by STEADY_LOG_DIR. Every logger in a process shares one
// session id, so one test run produces one log file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EnvLogDir overrides the log directory.
const EnvLogDir = "STEADY_LOG_DIR"

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// Logger writes leveled, component-tagged entries.
type Logger struct {
	sessionID string
	component string
	out       *output
	logPath   string
}

// output is shared by loggers derived with With.
type output struct {
	mu        sync.Mutex
	file      *os.File
	logger    *log.Logger
	minLevel  Level
	closeOnce sync.Once
}

var (
	// Global session ID for the current execution
	sessionID     string
	sessionIDOnce sync.Once

	// logDir is the directory where log files are stored
	logDir  string
	logMu   sync.Mutex
	logDone bool
)

// getSessionID returns or creates the session ID for this execution
func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

// initLogDirectory ensures the log directory exists
func initLogDirectory() (string, error) {
	logMu.Lock()
	defer logMu.Unlock()
	if logDone {
		return logDir, nil
	}

	dir := os.Getenv(EnvLogDir)
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, ".steady", "logs")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	logDir, logDone = dir, true
	return logDir, nil
}

// NewLogger creates a file logger for a specific component.
//
// If the log directory cannot be created or the log file cannot be opened,
// it returns a fallback logger that writes to stderr along with the error.
func NewLogger(component string) (*Logger, error) {
	dir, err := initLogDirectory()
	if err != nil {
		return newFallbackLogger(component, err), err
	}

	sessID := getSessionID()
	logPath := filepath.Join(dir, fmt.Sprintf("%s-steady.log", sessID))

	// Open log file in append mode (multiple components may write to same file)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		err = fmt.Errorf("failed to open log file: %w", err)
		return newFallbackLogger(component, err), err
	}

	return &Logger{
		sessionID: sessID,
		component: component,
		out:       &output{file: file, logger: log.New(file, "", 0)},
		logPath:   logPath,
	}, nil
}

// NewWriterLogger creates a logger writing to w.
func NewWriterLogger(component string, w io.Writer) *Logger {
	return &Logger{
		sessionID: getSessionID(),
		component: component,
		out:       &output{logger: log.New(w, "", 0)},
	}
}

// Discard returns a logger that drops everything.
func Discard(component string) *Logger {
	return NewWriterLogger(component, io.Discard)
}

// newFallbackLogger creates a logger that writes to stderr when file logging fails
func newFallbackLogger(component string, err error) *Logger {
	l := NewWriterLogger(component, os.Stderr)
	l.Warnf("Failed to initialize file logging: %v", err)
	l.Warnf("Falling back to stderr logging")
	return l
}

// With returns a logger for another component sharing this logger's output.
func (l *Logger) With(component string) *Logger {
	c := *l
	c.component = component
	return &c
}

// SetLevel drops entries below min for this logger and every logger sharing
// its output.
func (l *Logger) SetLevel(min Level) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.minLevel = min
}

func (l *Logger) write(level Level, format string, v ...any) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	if level < l.out.minLevel {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	message := fmt.Sprintf(format, v...)
	l.out.logger.Printf("[%s] [%s] [%s] %s", timestamp, l.component, level, message)
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...any) { l.write(LevelDebug, format, v...) }

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...any) { l.write(LevelInfo, format, v...) }

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...any) { l.write(LevelWarn, format, v...) }

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...any) { l.write(LevelError, format, v...) }

// SessionID returns the current session ID
func (l *Logger) SessionID() string {
	return l.sessionID
}

// LogPath returns the path to the log file, or "" for writer loggers.
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.out.closeOnce.Do(func() {
		if l.out.file != nil {
			err = l.out.file.Close()
		}
	})
	return err
}

// GetSessionID returns the current global session ID
func GetSessionID() string {
	return getSessionID()
}

// GetLogDirectory returns the directory where logs are stored
func GetLogDirectory() (string, error) {
	return initLogDirectory()
}
