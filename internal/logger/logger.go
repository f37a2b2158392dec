// Package logger is a small leveled wrapper around the standard log package.
package logger

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu           sync.RWMutex
	currentLevel = LevelInfo
	logger       = stdlog.New(os.Stdout, "", 0)
	output       io.Closer
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name (case-insensitive) to a Level.
func ParseLevel(level string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	}
	return LevelInfo, false
}

// SetLevel sets the minimum level. Unknown names are ignored.
func SetLevel(level string) {
	l, ok := ParseLevel(level)
	if !ok {
		return
	}
	mu.Lock()
	currentLevel = l
	mu.Unlock()
}

// SetWriter redirects log output.
func SetWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = stdlog.New(w, "", 0)
}

// SetOutput accepts "stdout", "stderr" or a file path (opened for append).
func SetOutput(dest string) error {
	var w io.Writer
	switch strings.ToLower(dest) {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		mu.Lock()
		if output != nil {
			output.Close()
		}
		output = f
		mu.Unlock()
		w = f
	}
	SetWriter(w)
	return nil
}

// Close releases a log file opened by SetOutput.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if output == nil {
		return nil
	}
	err := output.Close()
	output = nil
	logger = stdlog.New(os.Stdout, "", 0)
	return err
}

// Enabled reports whether messages at level would be written.
func Enabled(level Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return level >= currentLevel
}

func log(level Level, format string, v ...any) {
	mu.RLock()
	l, min := logger, currentLevel
	mu.RUnlock()
	if level < min {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	prefix := fmt.Sprintf("[%s] [%s] ", timestamp, level.String())
	l.Println(prefix + fmt.Sprintf(format, v...))
}

func Debug(format string, v ...any) {
	log(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	log(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	log(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	log(LevelError, format, v...)
}
