// +build linux freebsd

// Package ttyio provides the minimal raw-mode and window-size queries
// a local TTY session needs.
//
// These have no real business living outside a terminal library, but
// as of the Go versions this core targets, there still isn't a
// stdlib-blessed replacement, so the syscalls are done directly
// (same tradeoff the rest of this stack makes).
package ttyio

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

const getTermios = unix.TCGETS
const setTermios = unix.TCSETS

// State is the saved terminal mode, returned by MakeRaw for later
// restoration via Restore.
type State struct {
	termios unix.Termios
}

// MakeRaw puts the terminal connected to fd into raw mode and returns
// the previous state so it can be restored on session teardown.
func MakeRaw(fd uintptr) (*State, error) {
	var oldState State
	if _, _, err := unix.Syscall(unix.SYS_IOCTL, fd, getTermios, uintptr(unsafe.Pointer(&oldState.termios))); err != 0 {
		return nil, err
	}

	newState := oldState.termios
	newState.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	newState.Oflag &^= unix.OPOST
	newState.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	newState.Cflag &^= unix.CSIZE | unix.PARENB
	newState.Cflag |= unix.CS8
	newState.Cc[unix.VMIN] = 1
	newState.Cc[unix.VTIME] = 0

	if _, _, err := unix.Syscall(unix.SYS_IOCTL, fd, setTermios, uintptr(unsafe.Pointer(&newState))); err != 0 {
		return nil, err
	}

	return &oldState, nil
}

// Restore restores the terminal connected to fd to a previous state.
func Restore(fd uintptr, state *State) error {
	if state == nil {
		return errors.New("ttyio: nil State")
	}
	if _, _, err := unix.Syscall(unix.SYS_IOCTL, fd, setTermios, uintptr(unsafe.Pointer(&state.termios))); err != 0 {
		return err
	}
	return nil
}

// GetWinsize queries the terminal's current window geometry via
// TIOCGWINSZ. Width or height of 0 is returned as-is; callers treat a
// non-positive dimension as "unknown" per spec (ignored with a warning).
func GetWinsize(fd uintptr) (width, height int, err error) {
	ws, err := unix.IoctlGetWinsize(int(fd), unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, err
	}
	return int(ws.Col), int(ws.Row), nil
}
