package session

import (
	"strings"
	"testing"
	"time"

	"github.com/xorp-project/xorpcli/dispatch"
	"github.com/xorp-project/xorpcli/telnet"
	"github.com/xorp-project/xorpcli/tree"
)

type fakeTransport struct {
	out    strings.Builder
	closed bool
}

func (f *fakeTransport) Write(b []byte) (int, error) { f.out.Write(b); return len(b), nil }
func (f *fakeTransport) Close() error                { f.closed = true; return nil }

type fakeRemote struct {
	lastSent []string
}

func (f *fakeRemote) Send(target, serverName, termName string, sessionID uint32, commandGlobalName, argsJoined string) {
	f.lastSent = append(f.lastSent, commandGlobalName+":"+argsJoined)
}
func (f *fakeRemote) Interrupt(serverName, termName string, sessionID uint32, commandGlobalName string, args []string) {
}

func fixedClock() time.Time { return time.Unix(0, 0) }

func buildTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New()
	if _, err := tr.AddCommand([]string{"show"}, "show info", tree.WithCd("show# ")); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.AddCommand([]string{"show", "version"}, "show version",
		tree.WithProcess(func(args []string) ([]string, error) {
			return []string{"XORP 1.0"}, nil
		}),
		tree.WithPipe(),
	); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.AddCommand([]string{"ping"}, "ping a host",
		tree.WithServer("fea"),
		tree.WithArgumentExpected(),
		tree.WithInterrupt(func(args []string) {}),
	); err != nil {
		t.Fatal(err)
	}
	return tr
}

func newTestSession(t *testing.T) (*Session, *fakeTransport, *dispatch.Manager, *fakeRemote) {
	t.Helper()
	tr := buildTree(t)
	remote := &fakeRemote{}
	mgr := dispatch.NewManager(remote)
	transport := &fakeTransport{}
	s := New(transport, tr, mgr, "cli0", 1, "", true, fixedClock)
	return s, transport, mgr, remote
}

func feedString(t *testing.T, s *Session, str string) {
	t.Helper()
	for i := 0; i < len(str); i++ {
		if err := s.FeedByte(str[i]); err != nil {
			t.Fatalf("FeedByte(%q) error: %v", str[i], err)
		}
	}
}

func TestBasicExecution(t *testing.T) {
	s, transport, _, _ := newTestSession(t)
	feedString(t, s, "show version\r\n")
	if !strings.Contains(transport.out.String(), "XORP 1.0") {
		t.Fatalf("expected output to contain XORP 1.0, got %q", transport.out.String())
	}
	if s.State() != Editing {
		t.Fatalf("expected Editing after sync command, got %v", s.State())
	}
}

func TestEmptyLineReprompts(t *testing.T) {
	s, transport, _, _ := newTestSession(t)
	feedString(t, s, "\r\n")
	if !strings.Contains(transport.out.String(), DefaultPrompt) {
		t.Fatal("expected prompt to be reprinted on empty line")
	}
}

func TestCdEntersNode(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	feedString(t, s, "show\r\n")
	if s.CurrentNode().Name() != "show" {
		t.Fatalf("expected current node 'show', got %v", s.CurrentNode().Name())
	}
	if s.Prompt() != "show# " {
		t.Fatalf("expected cd_prompt override, got %q", s.Prompt())
	}
}

func TestRemoteCommandWaitsThenDelivers(t *testing.T) {
	s, transport, mgr, remote := newTestSession(t)
	feedString(t, s, "ping 10.0.0.1\r\n")
	if !s.IsWaitingForData() {
		t.Fatal("expected session to be waiting on a remote command")
	}
	if len(remote.lastSent) != 1 {
		t.Fatalf("expected one remote send, got %v", remote.lastSent)
	}
	mgr.Deliver("cli0", 1, "ping: reply\n")
	if s.IsWaitingForData() {
		t.Fatal("expected waiting flag cleared after delivery")
	}
	if !strings.Contains(transport.out.String(), "ping: reply") {
		t.Fatalf("expected reply text written, got %q", transport.out.String())
	}
}

func TestInterruptDuringWait(t *testing.T) {
	s, transport, _, _ := newTestSession(t)
	feedString(t, s, "ping 10.0.0.1\r\n")
	if !s.IsWaitingForData() {
		t.Fatal("expected waiting state before interrupt")
	}
	s.FeedByte(0x03)
	if s.IsWaitingForData() {
		t.Fatal("interrupt should clear waiting state")
	}
	if !strings.Contains(transport.out.String(), "Command interrupted!") {
		t.Fatal("expected interrupt message")
	}
}

func TestPipeMatchFiltersOutput(t *testing.T) {
	tr := tree.New()
	if _, err := tr.AddCommand([]string{"show"}, "show", tree.WithCd("show# ")); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.AddCommand([]string{"show", "x"}, "generator",
		tree.WithProcess(func(args []string) ([]string, error) {
			return []string{"a", "b", "a", "b", "a"}, nil
		}),
		tree.WithPipe(),
	); err != nil {
		t.Fatal(err)
	}
	remote := &fakeRemote{}
	mgr := dispatch.NewManager(remote)
	transport := &fakeTransport{}
	s := New(transport, tr, mgr, "cli0", 1, "", true, fixedClock)

	feedString(t, s, "show x | match a\r\n")
	out := transport.out.String()
	count := strings.Count(out, "a\r\n")
	if count != 3 {
		t.Fatalf("expected 3 matching lines, got %d in %q", count, out)
	}
}

func TestStartSendsTelnetInitAndPromptForNetworkSession(t *testing.T) {
	tr := buildTree(t)
	remote := &fakeRemote{}
	mgr := dispatch.NewManager(remote)
	transport := &fakeTransport{}
	s := New(transport, tr, mgr, "cli0", 1, "1.2.3.4:5678", false, fixedClock)

	s.Start()

	out := transport.out.String()
	if !strings.HasPrefix(out, string(telnet.InitSequence())) {
		t.Fatalf("expected telnet init sequence to lead the output, got %q", out)
	}
	if !strings.Contains(out, DefaultPrompt) {
		t.Fatal("expected initial prompt to be written")
	}
	if s.State() != Editing {
		t.Fatalf("expected Editing after Start, got %v", s.State())
	}
}

func TestStartSkipsTelnetInitForLocalSession(t *testing.T) {
	s, transport, _, _ := newTestSession(t)
	s.Start()
	out := transport.out.String()
	if strings.Contains(out, string([]byte{telnet.IAC})) {
		t.Fatalf("local session should not emit telnet negotiation bytes, got %q", out)
	}
	if !strings.Contains(out, DefaultPrompt) {
		t.Fatal("expected initial prompt to be written")
	}
}

func TestTrailingPipeIsSyntaxError(t *testing.T) {
	s, transport, _, _ := newTestSession(t)
	feedString(t, s, "show version |\r\n")
	if !strings.Contains(transport.out.String(), "syntax error") {
		t.Fatalf("expected syntax error message, got %q", transport.out.String())
	}
}
