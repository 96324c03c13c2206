// +build windows

// Package xlog mirrors the API of the UNIX syslog wrapper (see
// xlog_linux.go) with a no-op Windows fallback (log/syslog has no
// Windows implementation): every call, SetDebug included, does nothing.
package xlog

import "os"

type Priority = int
type Writer = os.File

const (
	LOG_EMERG Priority = iota
	LOG_ALERT
	LOG_CRIT
	LOG_ERR
	LOG_WARNING
	LOG_NOTICE
	LOG_INFO
	LOG_DEBUG
)

const (
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
	_
	_
	_
	_
	LOG_LOCAL0
	LOG_LOCAL1
	LOG_LOCAL2
	LOG_LOCAL3
	LOG_LOCAL4
	LOG_LOCAL5
	LOG_LOCAL6
	LOG_LOCAL7
)

func New(flags Priority, tag string) (*Writer, error) { return os.Stderr, nil }
func SetDebug(v bool)                                 {}
func Close() error                                    { return nil }
func Alert(s string) error                            { return nil }
func Crit(s string) error                              { return nil }
func Debug(s string) error                             { return nil }
func Err(s string) error                               { return nil }
func Info(s string) error                              { return nil }
func Notice(s string) error                            { return nil }
func Warning(s string) error                           { return nil }
func Write(b []byte) (int, error)                      { return len(b), nil }

// Sink is a zero-size io.Writer adapter over the package-level Write
// func, for callers (log.SetOutput) that need a value, not a function.
type Sink struct{}

// Write implements io.Writer by delegating to the package Write func.
func (Sink) Write(b []byte) (int, error) { return Write(b) }
