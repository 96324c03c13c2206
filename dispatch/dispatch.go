// Package dispatch sends a parsed remote command to its processor and
// correlates the asynchronous reply back to the session that issued
// it, per spec.md §4.9. In-process commands do not pass through here;
// the session runs their callback itself.
package dispatch

import (
	"sync"
)

// Error is returned by Dispatch when a command cannot be run.
type Error struct {
	Kind ErrorKind
	Msg  string
}

// ErrorKind enumerates dispatch.Error variants (spec §7 DispatchError).
type ErrorKind int

// nolint: golint
const (
	_ ErrorKind = iota
	UnknownCommand
	NotExecutable
	BadArgument
)

func (e *Error) Error() string { return e.Msg }

// Remote is the transport a Dispatcher uses to reach an external
// processor module; it is fire-and-forget from the Dispatcher's
// perspective, replies arrive later via Manager.Deliver.
type Remote interface {
	// Send issues the remote call; args are already space-joined.
	Send(target, serverName, termName string, sessionID uint32, commandGlobalName, argsJoined string)
	// Interrupt signals the remote side to cancel an in-flight command.
	Interrupt(serverName, termName string, sessionID uint32, commandGlobalName string, args []string)
}

// ReplyHandler receives a remote command's output text once it
// arrives, or is invoked with ok=false if an interrupt fired first and
// any subsequent late reply should be dropped.
type ReplyHandler func(text string, ok bool)

// Manager correlates outbound remote dispatches with their (eventual,
// asynchronous) replies, keyed by (term_name, session_id) per
// spec.md's recv_process_command_output contract.
type Manager struct {
	remote Remote

	mu      sync.Mutex
	waiting map[waitKey]ReplyHandler
}

type waitKey struct {
	termName  string
	sessionID uint32
}

// NewManager returns a Manager that issues remote calls through remote.
func NewManager(remote Remote) *Manager {
	return &Manager{remote: remote, waiting: make(map[waitKey]ReplyHandler)}
}

// Dispatch sends a parsed command to the named remote processor and
// registers onReply to receive the eventual reply. If serverName is
// empty it does nothing: in-process commands are run by the caller.
// The caller (Session) is responsible for setting its own
// is_waiting_for_data flag before calling Dispatch with a non-nil
// onReply.
func (m *Manager) Dispatch(target, serverName, termName string, sessionID uint32, commandGlobalName string, args []string, argsJoined string, onReply ReplyHandler) {
	if serverName == "" {
		return
	}
	m.mu.Lock()
	m.waiting[waitKey{termName, sessionID}] = onReply
	m.mu.Unlock()
	m.remote.Send(target, serverName, termName, sessionID, commandGlobalName, argsJoined)
}

// Interrupt cancels the currently-waiting command for (termName,
// sessionID), if any, invoking its ReplyHandler with ok=false so any
// later stray reply for the same key is dropped by Deliver.
func (m *Manager) Interrupt(serverName, termName string, sessionID uint32, commandGlobalName string, args []string) {
	key := waitKey{termName, sessionID}
	m.mu.Lock()
	handler, ok := m.waiting[key]
	delete(m.waiting, key)
	m.mu.Unlock()
	if ok && handler != nil {
		handler("", false)
	}
	m.remote.Interrupt(serverName, termName, sessionID, commandGlobalName, args)
}

// Deliver routes a reply from recv_process_command_output to the
// waiting handler for (termName, sessionID). A reply for a session
// that is not currently waiting (unknown key) is silently dropped, per
// spec.md §4.7's failure semantics.
func (m *Manager) Deliver(termName string, sessionID uint32, text string) {
	key := waitKey{termName, sessionID}
	m.mu.Lock()
	handler, ok := m.waiting[key]
	delete(m.waiting, key)
	m.mu.Unlock()
	if ok && handler != nil {
		handler(text, true)
	}
}

// IsWaiting reports whether a reply is currently outstanding for
// (termName, sessionID).
func (m *Manager) IsWaiting(termName string, sessionID uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.waiting[waitKey{termName, sessionID}]
	return ok
}
