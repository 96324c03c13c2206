// +build windows
//
// Terminal manipulation on Windows is mostly a stub here: mintty-style
// terminals use named pipes/ptys rather than the Windows console APIs
// this core would otherwise call, so there's no cross-platform win.
// A network (telnet) session never needs this file at all; only a
// local-TTY session on Windows would, and that case is expected to be
// handled by an external wrapper, same as the teacher's client does.
package ttyio

type State struct{}

func MakeRaw(fd uintptr) (*State, error) { return &State{}, nil }
func Restore(fd uintptr, state *State) error { return nil }
func GetWinsize(fd uintptr) (width, height int, err error) { return 80, 24, nil }
