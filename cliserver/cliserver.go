// Package cliserver implements the SessionManager: it listens for
// network CLI connections, checks them against the ACL, allocates a
// term-name/session-id pair from the process-wide pools, and fans log
// records out to subscribed sessions. Grounded on the accept-loop and
// signal-driven daemon shape of the teacher's xsd/xsd.go main().
package cliserver

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/xorp-project/xorpcli/acl"
	"github.com/xorp-project/xorpcli/dispatch"
	"github.com/xorp-project/xorpcli/internal/xlog"
	"github.com/xorp-project/xorpcli/session"
	"github.com/xorp-project/xorpcli/tree"
)

// MaxConnections bounds the term-name pool ("cli0".."cli<N-1>");
// exceeding it rejects new connections (spec.md §4.8).
const MaxConnections = 64

// netConnTransport adapts a net.Conn to session.Transport.
type netConnTransport struct {
	conn net.Conn
}

func (t netConnTransport) Write(b []byte) (int, error) { return t.conn.Write(b) }
func (t netConnTransport) Close() error                 { return t.conn.Close() }

// Manager owns the listener, the command tree, the ACL, and the live
// session table.
type Manager struct {
	tree       *tree.Tree
	dispatch   *dispatch.Manager
	acl        *acl.List
	listener   net.Listener

	mu            sync.Mutex
	sessions      map[string]*session.Session // keyed by term_name
	sessionByID   map[uint32]*session.Session
	termPool      [MaxConnections]bool // true = in use
	nextSessionID uint32
}

// NewManager returns a SessionManager bound to addr (host:port),
// serving cmdTree and dispatching remote commands through dispatcher,
// enforcing access per list.
func NewManager(addr string, cmdTree *tree.Tree, dispatcher *dispatch.Manager, list *acl.List) (*Manager, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Manager{
		tree:        cmdTree,
		dispatch:    dispatcher,
		acl:         list,
		listener:    ln,
		sessions:    make(map[string]*session.Session),
		sessionByID: make(map[uint32]*session.Session),
	}, nil
}

// Addr returns the bound listener address.
func (m *Manager) Addr() net.Addr { return m.listener.Addr() }

// Serve runs the accept loop until the listener is closed. Each
// accepted connection is handed its own goroutine, which checks it
// against the ACL and then runs its per-byte read loop, matching the
// teacher's goroutine-per-connection daemon shape.
func (m *Manager) Serve() error {
	for {
		conn, err := m.listener.Accept()
		if err != nil {
			return err
		}
		go m.handleConn(conn)
	}
}

// Close shuts the listener down; in-flight sessions are left to the
// caller to drain.
func (m *Manager) Close() error { return m.listener.Close() }

func (m *Manager) handleConn(conn net.Conn) {
	host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	ip := net.ParseIP(host)
	if ip != nil && m.acl != nil && !m.acl.Allowed(ip) {
		xlog.Notice(fmt.Sprintf("cli: rejected connection from %s (ACL denied)", host)) // nolint: errcheck
		conn.Close()
		return
	}

	termName, ok := m.allocateTermName()
	if !ok {
		xlog.Notice("cli: rejected connection, too many CLI connections") // nolint: errcheck
		conn.Write([]byte("Too many CLI connections\r\n"))
		conn.Close()
		return
	}
	sessionID := m.allocateSessionID()

	sess := session.New(netConnTransport{conn}, m.tree, m.dispatch, termName, sessionID, conn.RemoteAddr().String(), false, nil)

	m.mu.Lock()
	m.sessions[termName] = sess
	m.sessionByID[sessionID] = sess
	m.mu.Unlock()

	xlog.Notice(fmt.Sprintf("cli: session %s (id %d) connected from %s", termName, sessionID, conn.RemoteAddr())) // nolint: errcheck
	sess.Start()

	defer func() {
		m.mu.Lock()
		delete(m.sessions, termName)
		delete(m.sessionByID, sessionID)
		m.releaseTermName(termName)
		m.mu.Unlock()
		sess.Destroy()
		xlog.Notice(fmt.Sprintf("cli: session %s (id %d) disconnected", termName, sessionID)) // nolint: errcheck
	}()

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n == 0 || err != nil {
			return
		}
		for i := 0; i < n; i++ {
			if ferr := sess.FeedByte(buf[i]); ferr != nil {
				xlog.Notice(fmt.Sprintf("cli: session %s fatal: %v", termName, ferr)) // nolint: errcheck
				return
			}
		}
	}
}

func (m *Manager) allocateTermName() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < MaxConnections; i++ {
		if !m.termPool[i] {
			m.termPool[i] = true
			return fmt.Sprintf("cli%d", i), true
		}
	}
	return "", false
}

func (m *Manager) releaseTermName(termName string) {
	var n int
	if _, err := fmt.Sscanf(termName, "cli%d", &n); err != nil {
		return
	}
	if n >= 0 && n < MaxConnections {
		m.termPool[n] = false
	}
}

// allocateSessionID returns a monotonically increasing id, skipping
// any id currently assigned to a live session (spec.md §4.8).
func (m *Manager) allocateSessionID() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		id := m.nextSessionID
		m.nextSessionID++
		if _, inUse := m.sessionByID[id]; !inUse {
			return id
		}
	}
}

// NewLocalSession constructs and registers a session for the second
// session type spec.md §1/§3 names: a CLI running directly on a local
// pty-backed TTY rather than over a telnet connection. It shares the
// same term-name/session-id pools and log fan-out as network
// sessions, and runs Start (which, for a local session, is just the
// initial prompt — no telnet negotiation).
func (m *Manager) NewLocalSession(transport session.Transport) (*session.Session, error) {
	termName, ok := m.allocateTermName()
	if !ok {
		return nil, errors.New("cliserver: too many CLI connections")
	}
	sessionID := m.allocateSessionID()

	sess := session.New(transport, m.tree, m.dispatch, termName, sessionID, "", true, nil)

	m.mu.Lock()
	m.sessions[termName] = sess
	m.sessionByID[sessionID] = sess
	m.mu.Unlock()

	xlog.Notice(fmt.Sprintf("cli: local session %s (id %d) started", termName, sessionID)) // nolint: errcheck
	sess.Start()
	return sess, nil
}

// ReleaseLocalSession tears down a session built by NewLocalSession
// and frees its pooled term-name/session-id.
func (m *Manager) ReleaseLocalSession(sess *session.Session) {
	m.mu.Lock()
	delete(m.sessions, sess.TermName())
	delete(m.sessionByID, sess.SessionID())
	m.releaseTermName(sess.TermName())
	m.mu.Unlock()
	sess.Destroy()
	xlog.Notice(fmt.Sprintf("cli: local session %s (id %d) ended", sess.TermName(), sess.SessionID())) // nolint: errcheck
}

// DeliverRemoteOutput routes a remote processor's reply to the
// session identified by termName, matching
// SessionManager::recv_process_command_output.
func (m *Manager) DeliverRemoteOutput(termName string, sessionID uint32, text string) {
	m.dispatch.Deliver(termName, sessionID, text)
}

// XlogOutput fans a log record out to every session that opted in as
// a log sink, synchronously (spec.md §5: "a log record is delivered
// to all subscribed sessions before the log call returns").
func (m *Manager) XlogOutput(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sess := range m.sessions {
		if sess.IsLogOutput() {
			sess.LogPrint(text)
		}
	}
}
