package util

import (
	"bytes"
	"io"
	"sync"
)

var (
	globalLogger *Logger
	loggerMu     sync.RWMutex
)

// InitLogger installs the global logger, closing any previous one
func InitLogger(opts LoggerOptions) error {
	logger, err := NewLogger(opts)
	if err != nil {
		return err
	}
	SetLogger(logger)
	return nil
}

// SetLogger replaces the global logger; nil disables logging
func SetLogger(logger *Logger) {
	loggerMu.Lock()
	previous := globalLogger
	globalLogger = logger
	loggerMu.Unlock()

	if previous != nil && previous != logger {
		_ = previous.Close()
	}
}

func logAt(level LogLevel, msg string, fields []Field) {
	loggerMu.RLock()
	logger := globalLogger
	loggerMu.RUnlock()

	if logger != nil {
		logger.Log(level, msg, fields...)
	}
}

func LogDebug(msg string, fields ...Field) { logAt(LevelDebug, msg, fields) }

func LogInfo(msg string, fields ...Field) { logAt(LevelInfo, msg, fields) }

func LogWarn(msg string, fields ...Field) { logAt(LevelWarn, msg, fields) }

func LogError(msg string, fields ...Field) { logAt(LevelError, msg, fields) }

// lineWriter logs each complete line written to it at info level
type lineWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// LogWriter adapts line-oriented writers, such as HTTP access logs, to the
// global logger
func LogWriter() io.Writer {
	return &lineWriter{}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(w.buf.Next(i + 1))
		if line = line[:len(line)-1]; line != "" {
			LogInfo(line)
		}
	}
	return len(p), nil
}
