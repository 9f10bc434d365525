package core

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is the logging surface the renderer writes to. The default
// implementation wraps charmbracelet/log; tests swap in a nop logger.
type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

type DefaultLogger struct {
	l *log.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    debug,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          prefix,
	})
	if debug {
		l.SetLevel(log.DebugLevel)
	} else {
		l.SetLevel(log.InfoLevel)
	}
	return &DefaultLogger{l: l}
}

func (d *DefaultLogger) DebugEnabled() bool {
	return d.l.GetLevel() <= log.DebugLevel
}

func (d *DefaultLogger) SetDebug(enabled bool) {
	if enabled {
		d.l.SetLevel(log.DebugLevel)
		d.l.SetReportCaller(true)
	} else {
		d.l.SetLevel(log.InfoLevel)
		d.l.SetReportCaller(false)
	}
}

func (d *DefaultLogger) Debugf(format string, args ...any) { d.l.Debugf(format, args...) }
func (d *DefaultLogger) Infof(format string, args ...any)  { d.l.Infof(format, args...) }
func (d *DefaultLogger) Warnf(format string, args ...any)  { d.l.Warnf(format, args...) }
func (d *DefaultLogger) Errorf(format string, args ...any) { d.l.Errorf(format, args...) }
func (d *DefaultLogger) Fatalf(format string, args ...any) { d.l.Fatalf(format, args...) }

type nopLogger struct{}

func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool             { return false }
func (nopLogger) SetDebug(enabled bool)          {}
func (nopLogger) Debugf(format string, a ...any) {}
func (nopLogger) Infof(format string, a ...any)  {}
func (nopLogger) Warnf(format string, a ...any)  {}
func (nopLogger) Errorf(format string, a ...any) {}
func (nopLogger) Fatalf(format string, a ...any) {}
