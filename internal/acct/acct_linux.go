// +build linux

// Package acct registers local-TTY CLI sessions in the system
// utmp/wtmp database, and resolves a peer socket address to a display
// hostname, adapted from the Put_utmp/Unput_utmp/GetHost call pattern
// used around interactive-session setup in the teacher's daemons.
//
// Network (telnet) sessions are not real logins and are never
// registered here; only a CLI session opened on a local pty-backed TTY
// is.
package acct

import (
	"blitter.com/go/goutmp"
)

// Handle closes the utmp registration opened by Open.
type Handle func()

// Open records who is using termName (e.g. "cli0") connecting from
// host (empty for a purely local session) in utmp, and appends a
// lastlog entry. The returned Handle must be called on session
// teardown to remove the utmp entry.
func Open(progName, who, termName, host string) Handle {
	utmpx := goutmp.Put_utmp(who, termName, host)
	goutmp.Put_lastlog_entry(progName, who, termName, host) // nolint: errcheck
	return func() { goutmp.Unput_utmp(utmpx) }
}

// Close removes the utmp entry opened by Open.
func (h Handle) Close() {
	if h != nil {
		h()
	}
}

// ResolveHost maps a peer address string (e.g. "203.0.113.4:61234") to
// a display hostname for log messages, falling back to the address
// itself when reverse lookup fails.
func ResolveHost(addr string) string {
	return goutmp.GetHost(addr)
}
