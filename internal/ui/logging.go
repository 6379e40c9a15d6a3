package ui

import (
	"fmt"
	"io"
	"os"
)

type Logger struct {
	Debug bool
	out   io.Writer
}

func NewLogger(debug bool) *Logger {
	return &Logger{Debug: debug, out: os.Stderr}
}

// WithOutput redirects log lines, mostly for tests.
func (l *Logger) WithOutput(w io.Writer) *Logger {
	l.out = w
	return l
}

func (l *Logger) printf(level, format string, args ...any) {
	w := l.out
	if w == nil {
		w = os.Stderr
	}
	_, _ = fmt.Fprintf(w, "["+level+"] "+format, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	if l.Debug {
		l.printf("DEBUG", format, args...)
	}
}

func (l *Logger) Infof(format string, args ...any) {
	l.printf("INFO", format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.printf("WARN", format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.printf("ERROR", format, args...)
}
