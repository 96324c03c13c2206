package pager

import (
	"strings"
	"testing"
)

type fakeSink struct {
	out           []byte
	width, height int
	nomore        bool
	terminal      bool
	binary        bool
}

func (f *fakeSink) Write(b []byte)   { f.out = append(f.out, b...) }
func (f *fakeSink) Width() int       { return f.width }
func (f *fakeSink) Height() int      { return f.height }
func (f *fakeSink) NoMoreMode() bool { return f.nomore }
func (f *fakeSink) Terminal() bool   { return f.terminal }
func (f *fakeSink) BinaryMode() bool { return f.binary }

func passthrough(line string) (string, bool) { return line, true }

func TestWrapCount(t *testing.T) {
	if wrapCount("", 80) != 1 {
		t.Fatal("empty line should count as one row")
	}
	if wrapCount("x\r\n", 80) != 1 {
		t.Fatal("trailing crlf should not be counted")
	}
	if wrapCount("0123456789", 5) != 2 {
		t.Fatal("10 visible chars over width 5 should wrap to 2 rows")
	}
}

func TestFlushWithoutPaging(t *testing.T) {
	sink := &fakeSink{width: 80, height: 24, nomore: true}
	p := New(sink, passthrough)
	p.CliPrint("line one\nline two\n")
	if p.PageMode() {
		t.Fatal("nomore mode should prevent paging")
	}
	if string(sink.out) != "line one\nline two\n" {
		t.Fatalf("got %q", sink.out)
	}
}

func TestEntersPageModeWhenOverflowing(t *testing.T) {
	sink := &fakeSink{width: 80, height: 2}
	p := New(sink, passthrough)
	p.CliPrint("a\nb\nc\nd\n")
	if !p.PageMode() {
		t.Fatal("expected page mode once buffered rows exceed window height")
	}
}

func TestMorePromptAtTail(t *testing.T) {
	sink := &fakeSink{width: 80, height: 2}
	p := New(sink, passthrough)
	p.CliPrint("a\nb\n")
	if !p.PageMode() {
		t.Fatal("output that fills the window height should enter page mode")
	}
	p.HandleKey(KeyDownLine, nil)
	if got := string(sink.out); !strings.HasSuffix(got, " --More-- (END) ") {
		t.Fatalf("expected the (END) prompt once the last line is shown, got %q", got)
	}
}

func TestHelpModeEntryAndExit(t *testing.T) {
	sink := &fakeSink{width: 80, height: 3}
	p := New(sink, passthrough)
	p.CliPrint("a\nb\nc\nd\ne\n")
	p.HandleKey(KeyHelp, nil)
	if !p.HelpMode() {
		t.Fatal("expected help mode after 'h'")
	}
	p.HandleKey(KeyQuit, nil)
	if p.HelpMode() {
		t.Fatal("any key should exit help mode")
	}
}

func TestDisablePagingForRestOfCommand(t *testing.T) {
	sink := &fakeSink{width: 80, height: 2}
	p := New(sink, passthrough)
	p.CliPrint("a\nb\nc\nd\n")
	disabled := false
	p.HandleKey(KeyDisablePaging, func() { disabled = true })
	if !disabled {
		t.Fatal("expected disableNoMore callback to run")
	}
	if p.PageMode() {
		t.Fatal("page mode should end once paging is disabled")
	}
}

func TestKeyFromByte(t *testing.T) {
	cases := map[byte]Key{
		'\r': KeyDownLine,
		'd':  KeyDownHalf,
		' ':  KeyDownFull,
		'k':  KeyUpLine,
		'g':  KeyTop,
		'G':  KeyBottom,
		'N':  KeyDisablePaging,
		'q':  KeyQuit,
		'h':  KeyHelp,
	}
	for b, want := range cases {
		if got := KeyFromByte(b); got != want {
			t.Errorf("KeyFromByte(%q) = %v, want %v", b, got, want)
		}
	}
}

func TestReset(t *testing.T) {
	sink := &fakeSink{width: 80, height: 24, nomore: true}
	p := New(sink, passthrough)
	p.CliPrint("a\n")
	p.Reset()
	if p.PageMode() || p.HelpMode() {
		t.Fatal("reset should clear pager state")
	}
}
