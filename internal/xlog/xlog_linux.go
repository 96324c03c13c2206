// +build linux

// Package xlog is a wrapper around UNIX syslog, so that CLI core
// components log through one process-wide handle rather than each
// owning its own file descriptor (Sadly, the stdlib log/syslog is
// frozen, and there is no Windows implementation.) It also gates
// message severity against the daemon's own "-d" debug flag: with
// debug mode off, LOG_INFO/LOG_DEBUG calls are dropped before they
// ever reach syslog, so routine per-keystroke/per-session chatter
// doesn't flood the system log during normal operation.
package xlog

import (
	sl "log/syslog"
)

// Priority is the logger priority.
type Priority = sl.Priority

// Writer is a syslog Writer.
type Writer = sl.Writer

// nolint: golint
const (
	// Severity.
	LOG_EMERG Priority = iota
	LOG_ALERT
	LOG_CRIT
	LOG_ERR
	LOG_WARNING
	LOG_NOTICE
	LOG_INFO
	LOG_DEBUG
)

// nolint: golint
const (
	// Facility.
	LOG_KERN Priority = iota << 3
	LOG_USER
	LOG_MAIL
	LOG_DAEMON
	LOG_AUTH
	LOG_SYSLOG
	LOG_LPR
	LOG_NEWS
	LOG_UUCP
	LOG_CRON
	LOG_AUTHPRIV
	LOG_FTP
	_ // unused
	_ // unused
	_ // unused
	_ // unused
	LOG_LOCAL0
	LOG_LOCAL1
	LOG_LOCAL2
	LOG_LOCAL3
	LOG_LOCAL4
	LOG_LOCAL5
	LOG_LOCAL6
	LOG_LOCAL7
)

var (
	l *sl.Writer

	// minSeverity is the highest-numbered (least severe) Priority that
	// is actually forwarded to syslog; SetDebug moves this threshold.
	// LOG_NOTICE by default, so routine LOG_INFO/LOG_DEBUG calls made
	// during normal (non -d) operation are dropped before syslog ever
	// sees them.
	minSeverity = LOG_NOTICE
)

// New opens the process-wide syslog Writer used by every subsequent
// Notice/Err/Info/Debug call.
func New(flags Priority, tag string) (w *Writer, e error) {
	w, e = sl.New(flags, tag)
	l = w
	return w, e
}

// SetDebug raises the logging threshold to LOG_DEBUG when v is true
// (every call reaches syslog), or lowers it back to LOG_NOTICE when v
// is false (LOG_INFO/LOG_DEBUG calls are silently dropped). Intended
// to be driven straight from the daemon's "-d" flag.
func SetDebug(v bool) {
	if v {
		minSeverity = LOG_DEBUG
	} else {
		minSeverity = LOG_NOTICE
	}
}

// Close closes the log Writer.
func Close() error {
	if l != nil {
		return l.Close()
	}
	return nil
}

// Alert logs at LOG_ALERT.
func Alert(s string) error {
	if LOG_ALERT > minSeverity || l == nil {
		return nil
	}
	return l.Alert(s)
}

// Crit logs at LOG_CRIT.
func Crit(s string) error {
	if LOG_CRIT > minSeverity || l == nil {
		return nil
	}
	return l.Crit(s)
}

// Debug logs at LOG_DEBUG.
func Debug(s string) error {
	if LOG_DEBUG > minSeverity || l == nil {
		return nil
	}
	return l.Debug(s)
}

// Err logs at LOG_ERR.
func Err(s string) error {
	if LOG_ERR > minSeverity || l == nil {
		return nil
	}
	return l.Err(s)
}

// Info logs at LOG_INFO.
func Info(s string) error {
	if LOG_INFO > minSeverity || l == nil {
		return nil
	}
	return l.Info(s)
}

// Notice logs at LOG_NOTICE.
func Notice(s string) error {
	if LOG_NOTICE > minSeverity || l == nil {
		return nil
	}
	return l.Notice(s)
}

// Warning logs at LOG_WARNING.
func Warning(s string) error {
	if LOG_WARNING > minSeverity || l == nil {
		return nil
	}
	return l.Warning(s)
}

// Write implements io.Writer at the default level, so xlog can be
// plugged into log.SetOutput.
func Write(b []byte) (int, error) {
	if l != nil {
		return l.Write(b)
	}
	return len(b), nil
}

// Sink is a zero-size io.Writer adapter over the package-level Write
// func, for callers (log.SetOutput) that need a value, not a function.
type Sink struct{}

// Write implements io.Writer by delegating to the package Write func.
func (Sink) Write(b []byte) (int, error) { return Write(b) }
