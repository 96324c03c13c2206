// Package session implements the per-client CLI state machine:
// editing the current line, tokenizing and dispatching on Enter,
// draining synchronous output through the pager, waiting on
// asynchronous remote replies, and handling Ctrl-C interrupts —
// spec.md §3 and §4.7. Accessor methods follow the getter/setter
// style of the teacher's own Session record.
package session

import (
	"errors"
	"strings"
	"time"

	"github.com/xorp-project/xorpcli/dispatch"
	"github.com/xorp-project/xorpcli/pager"
	"github.com/xorp-project/xorpcli/pipeline"
	"github.com/xorp-project/xorpcli/telnet"
	"github.com/xorp-project/xorpcli/token"
	"github.com/xorp-project/xorpcli/tree"
)

// State is the session's current position in the lifecycle diagram of
// spec.md §4.7.
type State int

// nolint: golint
const (
	Init State = iota
	Editing
	Dispatching
	PagerFill
	Waiting
	Interrupted
	Destroyed
)

// Error is returned for session-fatal conditions (spec §7 SessionError).
type Error struct {
	Kind ErrorKind
	Msg  string
}

// ErrorKind enumerates session.Error variants.
type ErrorKind int

// nolint: golint
const (
	_ ErrorKind = iota
	BufferFull
	TelnetOverflow
	IoClosed
	AclDenied
	PoolExhausted
)

func (e *Error) Error() string { return e.Msg }

// MaxLineBuffer is the line editor's capacity; one more byte than this
// kills the session (spec.md §8 boundary case).
const MaxLineBuffer = 1024

// DefaultPrompt and EnabledPrompt are the two standard CLI prompts;
// a node's cd_prompt, if set, overrides whichever is active.
const (
	DefaultPrompt = "Xorp> "
	EnabledPrompt = "XORP# "
)

// Transport is what a Session writes encoded bytes to; input is read
// by the caller and handed to the Session byte by byte via FeedByte.
// cliserver supplies the concrete network or local-tty implementation.
type Transport interface {
	Write(b []byte) (int, error)
	Close() error
}

// Clock lets tests control time without calling time.Now directly in
// the session (kept as a thin seam, not a generic abstraction).
type Clock func() time.Time

// Session holds the per-client state named in spec.md §3.
type Session struct {
	transport Transport
	tree      *tree.Tree
	dispatch  *dispatch.Manager
	clock     Clock

	user       string
	termName   string
	sessionID  uint32
	peerAddr   string
	startTime  time.Time
	isLocal    bool

	currentNode *tree.CommandNode
	prompt      string
	enabled     bool

	lineBuffer string
	cursorPos  int
	pendingInput []byte

	pipeChain *pipeline.Chain
	pager     *pager.Pager

	telnetDecoder *telnet.Decoder

	state State

	isPipeMode       bool
	isNoMoreMode     bool
	isHoldMode       bool
	isPageMode       bool
	isHelpMode       bool
	isPromptFlushed  bool
	isWaitingForData bool
	isLogOutput      bool

	width, height int

	execNode       *tree.CommandNode
	execGlobalName string
	execArgs       []string

	lastErr error
}

// sinkAdapter lets Session satisfy pager.Sink without exposing its
// internal fields to the pager package.
type sinkAdapter struct{ s *Session }

func (a sinkAdapter) Write(b []byte)   { a.s.writeOut(b) }
func (a sinkAdapter) Width() int       { return a.s.width }
func (a sinkAdapter) Height() int      { return a.s.height }
func (a sinkAdapter) NoMoreMode() bool { return a.s.isNoMoreMode }
func (a sinkAdapter) Terminal() bool   { return true }
func (a sinkAdapter) BinaryMode() bool { return a.s.telnetDecoder != nil && a.s.telnetDecoder.BinaryMode }

// New returns a freshly accepted Session in the Init state. termName
// and sessionID are assigned by the caller (cliserver owns the pools).
func New(transport Transport, root *tree.Tree, dispatcher *dispatch.Manager, termName string, sessionID uint32, peerAddr string, isLocal bool, clock Clock) *Session {
	s := &Session{
		transport:    transport,
		tree:         root,
		dispatch:     dispatcher,
		clock:        clock,
		termName:     termName,
		sessionID:    sessionID,
		peerAddr:     peerAddr,
		isLocal:      isLocal,
		currentNode:  root.Root(),
		prompt:       DefaultPrompt,
		pipeChain:    pipeline.NewChain(),
		width:        80,
		height:       24,
		state:        Init,
	}
	if !isLocal {
		s.telnetDecoder = telnet.NewDecoder()
	}
	s.pager = pager.New(sinkAdapter{s}, s.feedPipeline)
	if clock == nil {
		s.clock = time.Now
	}
	s.startTime = s.clock()
	return s
}

// Start runs the session's accept-time setup (spec.md §3, §4.6):
// network sessions get the telnet option negotiation sent ahead of
// anything else, then every session gets its first prompt. Until
// Start runs, a session sits in Init and no prompt has been written.
func (s *Session) Start() {
	if s.telnetDecoder != nil {
		s.transport.Write(telnet.InitSequence())
	}
	s.rePrompt()
}

// User returns the session's authenticated/assumed user name.
func (s *Session) User() string { return s.user }

// SetUser stores the session's user name.
func (s *Session) SetUser(u string) { s.user = u }

// TermName returns the process-unique terminal name ("cli0", "cli1", …).
func (s *Session) TermName() string { return s.termName }

// SessionID returns the process-unique numeric session identifier.
func (s *Session) SessionID() uint32 { return s.sessionID }

// PeerAddr returns the connecting address, or "" for a local session.
func (s *Session) PeerAddr() string { return s.peerAddr }

// StartTime returns when the session was created.
func (s *Session) StartTime() time.Time { return s.startTime }

// CurrentNode returns the tree node the session is "cd'd" into.
func (s *Session) CurrentNode() *tree.CommandNode { return s.currentNode }

// State returns the session's current lifecycle state.
func (s *Session) State() State { return s.state }

// Prompt returns the currently active prompt string.
func (s *Session) Prompt() string { return s.prompt }

// IsWaitingForData reports whether the session is blocked on a remote reply.
func (s *Session) IsWaitingForData() bool { return s.isWaitingForData }

// SetHoldMode implements pipeline.SessionControl.
func (s *Session) SetHoldMode(v bool) { s.isHoldMode = v }

// SetNoMoreMode implements pipeline.SessionControl.
func (s *Session) SetNoMoreMode(v bool) { s.isNoMoreMode = v }

// SetGeometry updates the session's terminal window size. Per
// spec.md §6, a non-positive width or height is ignored (with the
// caller expected to log a warning); updates are honored immediately.
func (s *Session) SetGeometry(w, h int) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	s.width, s.height = w, h
	return true
}

// Width and Height report the session's current terminal geometry.
func (s *Session) Width() int  { return s.width }
func (s *Session) Height() int { return s.height }

// SetIsLogOutput opts this session in (or out) as a log fan-out sink.
func (s *Session) SetIsLogOutput(v bool) { s.isLogOutput = v }

// IsLogOutput reports whether this session receives log fan-out.
func (s *Session) IsLogOutput() bool { return s.isLogOutput }

// LogPrint writes a fanned-out log record directly to this session's
// transport, bypassing the command pipe chain: xlog_output's
// "cli_print followed by cli_flush" (spec.md GLOSSARY) against a
// session not currently mid-command is just a direct write.
func (s *Session) LogPrint(text string) {
	s.writeLine(text)
}

func (s *Session) writeOut(b []byte) {
	s.transport.Write(b)
}

// writeLine telnet-encodes and writes one line verbatim (used for
// prompts and diagnostics, which bypass the pipe chain/pager).
func (s *Session) writeLine(line string) {
	binaryMode := s.telnetDecoder != nil && s.telnetDecoder.BinaryMode
	s.transport.Write(telnet.EncodeLine(line, binaryMode))
}

func (s *Session) feedPipeline(line string) (string, bool) {
	return s.pipeChain.Feed(line)
}

// FeedByte processes one incoming raw byte, decoding telnet framing
// for network sessions first. It returns an error for session-fatal
// conditions (the caller must then destroy the session).
func (s *Session) FeedByte(b byte) error {
	if s.telnetDecoder != nil {
		out, isData, opt, err := s.telnetDecoder.Feed(b)
		if err != nil {
			s.lastErr = &Error{Kind: TelnetOverflow, Msg: err.Error()}
			return s.lastErr
		}
		if opt != nil {
			s.handleTelnetOption(*opt)
			return nil
		}
		if !isData {
			// A completed NAWS subnegotiation has already updated the
			// decoder's Width/Height; pick the new geometry up.
			if s.telnetDecoder.Width > 0 && s.telnetDecoder.Height > 0 {
				s.SetGeometry(s.telnetDecoder.Width, s.telnetDecoder.Height)
			}
			return nil
		}
		b = out
	}
	return s.feedEditorByte(b)
}

func (s *Session) handleTelnetOption(opt telnet.Option) {
	if opt.Opt == telnet.OptNAWS {
		// Geometry itself arrives via the NAWS subnegotiation, already
		// applied to telnetDecoder.Width/Height; sync it in.
		if s.telnetDecoder.Width > 0 && s.telnetDecoder.Height > 0 {
			s.SetGeometry(s.telnetDecoder.Width, s.telnetDecoder.Height)
		}
	}
}

// feedEditorByte advances the line editor by one keystroke.
func (s *Session) feedEditorByte(b byte) error {
	if s.isPageMode || s.isHelpMode {
		return s.feedPagerByte(b)
	}

	switch b {
	case '\r', '\n':
		return s.submitLine()
	case 0x03: // Ctrl-C
		s.interrupt()
		return nil
	case 0x08, 0x7f: // Backspace / Delete
		if len(s.lineBuffer) > 0 {
			s.lineBuffer = s.lineBuffer[:len(s.lineBuffer)-1]
			if s.cursorPos > 0 {
				s.cursorPos--
			}
		}
		return nil
	case '?':
		s.emitCompletion()
		return nil
	default:
		if len(s.lineBuffer)+1 > MaxLineBuffer {
			s.lastErr = &Error{Kind: BufferFull, Msg: "data buffer full"}
			return s.lastErr
		}
		s.lineBuffer = s.lineBuffer[:s.cursorPos] + string(b) + s.lineBuffer[s.cursorPos:]
		s.cursorPos++
		return nil
	}
}

func (s *Session) feedPagerByte(b byte) error {
	key := pager.KeyFromByte(b)
	s.pager.HandleKey(key, func() { s.isNoMoreMode = true })
	s.isPageMode = s.pager.PageMode()
	s.isHelpMode = s.pager.HelpMode()
	if !s.isPageMode && !s.isHelpMode {
		s.postProcessCommand()
	}
	return nil
}

func (s *Session) emitCompletion() {
	completions := tree.Complete(s.currentNode, s.lineBuffer, s.cursorPos)
	for _, c := range completions {
		s.writeLine(c.Text + "\n")
	}
	s.writeLine(s.prompt + s.lineBuffer)
}

// submitLine tokenizes the edited line, walks the tree, builds the
// pipe chain, and dispatches — the Editing→Dispatch transition.
func (s *Session) submitLine() error {
	line := s.lineBuffer
	s.lineBuffer = ""
	s.cursorPos = 0
	s.writeLine("\n")

	if strings.TrimSpace(line) == "" {
		s.rePrompt()
		return nil
	}

	s.state = Dispatching
	segments, pipeSpecs, syntaxErr := splitPipeline(line)
	if syntaxErr != "" {
		s.writeLine(syntaxErr + "\n")
		s.rePrompt()
		return nil
	}

	node := tree.MultiCommandFind(s.currentNode, segments[0])
	if node == nil {
		s.printNoMatch(segments[0])
		s.rePrompt()
		return nil
	}

	if node.AllowCD() && node.ProcessCB() == nil {
		s.currentNode = node
		if node.CdPrompt() != "" {
			s.prompt = node.CdPrompt()
		}
		s.rePrompt()
		return nil
	}

	args := token.ToSlice(segments[0])
	// Strip the tokens that resolved to the node's own global name,
	// counted from the session's current node.
	consumed := len(node.GlobalName()) - len(s.currentNode.GlobalName())
	if consumed <= len(args) {
		args = args[consumed:]
	}

	stages, err := buildPipeChain(pipeSpecs)
	if err != nil {
		s.writeLine("ERROR: " + err.Error() + "\n")
		s.rePrompt()
		return nil
	}
	s.pipeChain = pipeline.NewChain(stages...)
	if err := s.pipeChain.Start(s); err != nil {
		s.writeLine("ERROR: " + err.Error() + "\n")
		s.pipeChain = pipeline.NewChain()
		s.rePrompt()
		return nil
	}

	s.execNode = node
	s.execGlobalName = node.GlobalNameString()
	s.execArgs = args

	s.pager.Reset()
	if node.ServerName() == "" {
		s.runInProcess(node, args)
	} else {
		s.runRemote(node, args)
	}
	return nil
}

func (s *Session) printNoMatch(firstSeg string) {
	tok := firstSeg
	if i := strings.IndexAny(tok, " \t"); i >= 0 {
		tok = tok[:i]
	}
	children := s.currentNode.Children()
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Name())
	}
	expected := strings.Join(names, ", ")
	if len(names) > 4 {
		expected = "<command>"
	}
	s.writeLine(strings.Repeat(" ", len(s.prompt)+len(tok)) + "^\n")
	s.writeLine("Expected: " + expected + "\n")
}

func (s *Session) runInProcess(node *tree.CommandNode, args []string) {
	lines, err := node.ProcessCB()(args)
	if err != nil {
		s.writeLine("ERROR: " + err.Error() + "\n")
		s.pipeChain.Clear()
		s.rePrompt()
		return
	}
	for _, l := range lines {
		s.pager.CliPrint(l + "\n")
	}
	s.postProcessCommand()
}

func (s *Session) runRemote(node *tree.CommandNode, args []string) {
	s.isWaitingForData = true
	s.state = Waiting
	argsJoined := strings.Join(args, " ")
	s.dispatch.Dispatch(node.ServerName(), node.ServerName(), s.termName, s.sessionID, s.execGlobalName, args, argsJoined,
		func(text string, ok bool) {
			s.onRemoteReply(text, ok)
		})
}

// onRemoteReply implements Waiting→PagerFill on a matched reply.
func (s *Session) onRemoteReply(text string, ok bool) {
	if !ok {
		return
	}
	s.isWaitingForData = false
	s.pager.CliPrint(text)
	s.postProcessCommand()
}

// interrupt implements the Ctrl-C path: invokes the executing node's
// interrupt callback (or signals the remote dispatcher), clears pipe
// and page state, and returns to Editing.
func (s *Session) interrupt() {
	if s.state != Waiting && s.execNode == nil {
		return
	}
	if s.execNode != nil {
		if s.execNode.ServerName() != "" {
			s.dispatch.Interrupt(s.execNode.ServerName(), s.termName, s.sessionID, s.execGlobalName, s.execArgs)
		} else if cb := s.execNode.InterruptCB(); cb != nil {
			cb(s.execArgs)
		}
	}
	s.writeLine("Command interrupted!\n")
	s.state = Interrupted
	s.isWaitingForData = false
	s.pipeChain.Clear()
	s.pager.Reset()
	s.isPageMode = false
	s.isHelpMode = false
	s.execNode = nil
	s.rePrompt()
}

// postProcessCommand pushes any partial output line through the pipe
// chain, runs the stages' eof hooks, clears the pipe chain (spec §8
// invariant: the chain is empty after this runs), prints the trailing
// pipe-stage output (e.g. count's summary line) without feeding it
// back through the stages, and returns to Editing unless the pager is
// holding the session in page mode.
func (s *Session) postProcessCommand() {
	s.pager.CliPrint("")
	trailing := s.pipeChain.EOF(s)
	s.pipeChain.Clear()
	for _, text := range trailing {
		s.pager.CliPrint(text)
	}

	s.isPageMode = s.pager.PageMode()
	if s.isPageMode {
		s.state = PagerFill
		return
	}
	if s.isHoldMode {
		s.isHoldMode = false
		return
	}
	s.execNode = nil
	s.rePrompt()
}

func (s *Session) rePrompt() {
	s.state = Editing
	s.writeLine(s.prompt)
	s.isPromptFlushed = true
}

// Destroy tears the session down: flushes the pipe chain, restores
// any saved TTY modes (handled by the caller via Transport.Close, the
// boundary this package doesn't own), and marks the state Destroyed.
func (s *Session) Destroy() {
	s.pipeChain.Clear()
	s.state = Destroyed
	s.transport.Close()
}

// --- pipeline parsing -------------------------------------------------

// splitPipeline splits line at each unquoted "|" into the command
// segment and the list of pipe-stage specs (name plus argument). A
// trailing "|" with no following name is a syntax error.
func splitPipeline(line string) (segments []string, pipeSpecs []pipeSpec, syntaxErr string) {
	toks := token.ToSlice(line)
	var cur []string
	var specs []pipeSpec
	i := 0
	for i < len(toks) {
		if toks[i] == "|" {
			break
		}
		cur = append(cur, toks[i])
		i++
	}
	commandSeg := strings.Join(cur, " ")
	for i < len(toks) {
		if toks[i] != "|" {
			i++
			continue
		}
		i++
		if i >= len(toks) {
			return nil, nil, "syntax error: trailing '|' with no pipe command"
		}
		name := toks[i]
		i++
		var arg string
		if i < len(toks) && toks[i] != "|" {
			arg = toks[i]
			i++
		}
		specs = append(specs, pipeSpec{name: name, arg: arg})
	}
	return []string{commandSeg}, specs, ""
}

type pipeSpec struct {
	name string
	arg  string
}

var pipeKindByName = map[string]pipeline.Kind{
	"count":    pipeline.Count,
	"match":    pipeline.Match,
	"except":   pipeline.Except,
	"find":     pipeline.Find,
	"hold":     pipeline.Hold,
	"no-more":  pipeline.NoMore,
	"save":     pipeline.Save,
	"resolve":  pipeline.Resolve,
	"trim":     pipeline.Trim,
	"display":  pipeline.Display,
	"compare":  pipeline.Compare,
}

func buildPipeChain(specs []pipeSpec) ([]*pipeline.Stage, error) {
	stages := make([]*pipeline.Stage, 0, len(specs))
	for _, sp := range specs {
		kind, ok := pipeKindByName[sp.name]
		if !ok {
			return nil, errors.New("unknown pipe command: " + sp.name)
		}
		stages = append(stages, pipeline.NewStage(kind, sp.arg))
	}
	return stages, nil
}
