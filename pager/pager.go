// Package pager implements the paginated-output mode a command's
// output enters when it produces more terminal rows than fit the
// session's window: it buffers lines, computes window-wrap counts,
// and renders the "--More--" prompt and help overlay, grounded on the
// line-buffering/page-mode description in spec.md §4.5 (resolved
// against the original cli_client.cc's keybinding set for the exact
// key set carried in SPEC_FULL.md).
package pager

import "strings"

// HelpText is the static help block rendered when 'h' is pressed in
// page mode, carried from the original's page-mode help overlay.
const HelpText = `---- Help for "--More--" ----

These commands are available when a command's output is paused:

  <Enter>, j, Ctrl-N    scroll down one line
  <Tab>, d, Ctrl-D,
  Ctrl-X                scroll down half screen
  <Space>, Ctrl-F       scroll down full screen
  k, Ctrl-P, Ctrl-H     scroll up one line
  u, Ctrl-U             scroll up half screen
  b, Ctrl-B             scroll up full screen
  g, Ctrl-A             jump to top
  G, Ctrl-E             jump to bottom
  N                     disable paging for the rest of this command
  Ctrl-L                redraw the screen
  q, Q, Ctrl-C, Ctrl-K  quit output display
  h                     this help
`

// Sink receives rendered output bytes (telnet-encoded, already
// \r\n-translated) and can report the connection's current geometry.
type Sink interface {
	Write(b []byte)
	Width() int
	Height() int
	NoMoreMode() bool
	Terminal() bool
	BinaryMode() bool
}

// LineFeeder runs a raw line through the session's active pipe chain
// and returns what should be displayed, or ok=false if the chain
// cleared the line.
type LineFeeder func(line string) (string, bool)

// Pager buffers a command's output and paginates it against the
// session's window geometry.
type Pager struct {
	sink      Sink
	feed      LineFeeder
	buffer    []string // page_buffer: one logical line per element
	lastLineN int
	pageMode  bool
	helpMode  bool

	savedBuffer    []string
	savedLastLineN int
	partial        string
}

// New returns a Pager writing through sink, running each complete
// line through feed before buffering it.
func New(sink Sink, feed LineFeeder) *Pager {
	return &Pager{sink: sink, feed: feed}
}

// PageMode reports whether the pager is currently paused awaiting a
// "--More--" keypress.
func (p *Pager) PageMode() bool { return p.pageMode }

// HelpMode reports whether the help overlay is currently displayed.
func (p *Pager) HelpMode() bool { return p.helpMode }

// wrapCount computes how many terminal rows a line occupies:
// ceil(visible_length/window_width), with trailing \r/\n not counted
// and an empty line counting as one row.
func wrapCount(line string, width int) int {
	trimmed := strings.TrimRight(line, "\r\n")
	if width <= 0 {
		return 1
	}
	if len(trimmed) == 0 {
		return 1
	}
	return (len(trimmed) + width - 1) / width
}

// CliPrint feeds msg into the pager. An empty msg is the EOF sentinel:
// it flushes any remaining partial buffered line through the pipe
// chain.
func (p *Pager) CliPrint(msg string) {
	if msg == "" {
		if p.partial != "" {
			p.appendLine(p.partial)
			p.partial = ""
		}
		p.maybeFlush()
		return
	}

	s := p.partial + msg
	p.partial = ""
	for {
		idx := strings.IndexByte(s, '\n')
		if idx < 0 {
			p.partial = s
			break
		}
		line := s[:idx+1]
		s = s[idx+1:]
		p.appendLine(line)
	}
	p.maybeFlush()
}

func (p *Pager) appendLine(line string) {
	out, ok := p.feed(line)
	if !ok {
		return
	}
	if p.sink.Terminal() {
		out = translateNewlines(out, p.sink.BinaryMode())
	}
	p.buffer = append(p.buffer, out)
}

func translateNewlines(s string, binaryMode bool) string {
	if binaryMode {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	var prev byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' && prev != '\r' {
			b.WriteByte('\r')
		}
		b.WriteByte(c)
		prev = c
	}
	return b.String()
}

// maybeFlush decides, after new lines were buffered, whether to flush
// to the transport now or enter page mode.
func (p *Pager) maybeFlush() {
	if p.pageMode {
		return
	}
	rows := 0
	for _, l := range p.buffer[p.lastLineN:] {
		rows += wrapCount(l, p.sink.Width())
	}
	if rows >= p.sink.Height() && !p.sink.NoMoreMode() && p.sink.Height() > 0 {
		p.pageMode = true
		p.flushOnePage()
		return
	}
	p.flushAll()
}

// flushAll writes every buffered line from lastLineN onward and
// advances lastLineN to the end.
func (p *Pager) flushAll() {
	for _, l := range p.buffer[p.lastLineN:] {
		p.sink.Write([]byte(l))
	}
	p.lastLineN = len(p.buffer)
}

// flushOnePage writes up to one screenful starting at lastLineN, then
// emits the "--More--" prompt.
func (p *Pager) flushOnePage() {
	rows := 0
	height := p.sink.Height()
	width := p.sink.Width()
	i := p.lastLineN
	for i < len(p.buffer) {
		lineRows := wrapCount(p.buffer[i], width)
		if rows+lineRows > height-1 && rows > 0 {
			break
		}
		p.sink.Write([]byte(p.buffer[i]))
		rows += lineRows
		i++
	}
	p.lastLineN = i
	p.writePrompt()
}

func (p *Pager) writePrompt() {
	if p.lastLineN >= len(p.buffer) {
		p.sink.Write([]byte(" --More-- (END) "))
	} else {
		p.sink.Write([]byte(" --More-- "))
	}
}

// Key identifies a page-mode keypress.
type Key int

// nolint: golint
const (
	KeyDownLine Key = iota
	KeyDownHalf
	KeyDownFull
	KeyUpLine
	KeyUpHalf
	KeyUpFull
	KeyTop
	KeyBottom
	KeyDisablePaging
	KeyRedraw
	KeyQuit
	KeyHelp
	KeyUnknown
)

// KeyFromByte classifies a raw input byte received in page mode,
// carrying the original cli_client.cc page-mode keybinding set.
func KeyFromByte(b byte) Key {
	switch b {
	case '\r', '\n', 'j', 0x0e: // Ctrl-N
		return KeyDownLine
	case '\t', 'd', 0x04, 0x18: // Ctrl-D, Ctrl-X
		return KeyDownHalf
	case ' ', 0x06: // Ctrl-F
		return KeyDownFull
	case 'k', 0x10, 0x08: // Ctrl-P, Ctrl-H
		return KeyUpLine
	case 'u', 0x15: // Ctrl-U
		return KeyUpHalf
	case 'b', 0x02: // Ctrl-B
		return KeyUpFull
	case 'g', 0x01: // Ctrl-A
		return KeyTop
	case 'G', 0x05: // Ctrl-E
		return KeyBottom
	case 'N':
		return KeyDisablePaging
	case 0x0c: // Ctrl-L
		return KeyRedraw
	case 'q', 'Q', 0x03, 0x0b: // Ctrl-C, Ctrl-K
		return KeyQuit
	case 'h':
		return KeyHelp
	default:
		return KeyUnknown
	}
}

// HandleKey applies a page-mode keypress. disableNoMore is called when
// KeyDisablePaging is pressed so the caller can flip the session's
// nomore flag for the remainder of this command's output.
func (p *Pager) HandleKey(k Key, disableNoMore func()) {
	if p.helpMode {
		p.exitHelp()
		return
	}
	height := p.sink.Height()
	switch k {
	case KeyDownLine:
		p.advance(1)
	case KeyDownHalf:
		p.advance(max1(height / 2))
	case KeyDownFull, KeyUnknown:
		p.advance(max1(height - 1))
	case KeyUpLine:
		p.rewind(1)
	case KeyUpHalf:
		p.rewind(max1(height / 2))
	case KeyUpFull:
		p.rewind(max1(height - 1))
	case KeyTop:
		p.lastLineN = 0
		p.pageMode = true
		p.flushOnePage()
	case KeyBottom:
		p.lastLineN = len(p.buffer)
		p.pageMode = false
		p.flushAll()
	case KeyDisablePaging:
		p.pageMode = false
		if disableNoMore != nil {
			disableNoMore()
		}
		p.flushAll()
	case KeyRedraw:
		p.rewindToRowStart()
		p.flushOnePage()
	case KeyQuit:
		p.lastLineN = len(p.buffer)
		p.pageMode = false
	case KeyHelp:
		p.enterHelp()
	}
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func (p *Pager) advance(lines int) {
	for i := 0; i < lines && p.pageMode; i++ {
		p.flushOnePageLines(1)
	}
}

func (p *Pager) flushOnePageLines(n int) {
	for n > 0 && p.lastLineN < len(p.buffer) {
		p.sink.Write([]byte(p.buffer[p.lastLineN]))
		p.lastLineN++
		n--
	}
	if p.lastLineN >= len(p.buffer) {
		p.pageMode = false
		p.sink.Write([]byte(" --More-- (END) "))
	} else {
		p.sink.Write([]byte(" --More-- "))
	}
}

func (p *Pager) rewind(lines int) {
	p.lastLineN -= lines
	if p.lastLineN < 0 {
		p.lastLineN = 0
	}
	p.pageMode = true
	p.flushOnePage()
}

// rewindToRowStart moves lastLineN back to the first line of the
// screenful currently displayed, so flushOnePage redraws it.
func (p *Pager) rewindToRowStart() {
	height := p.sink.Height()
	width := p.sink.Width()
	rows := 0
	for p.lastLineN > 0 {
		lineRows := wrapCount(p.buffer[p.lastLineN-1], width)
		if rows+lineRows > height-1 && rows > 0 {
			break
		}
		rows += lineRows
		p.lastLineN--
	}
}

func (p *Pager) enterHelp() {
	p.helpMode = true
	p.savedBuffer = p.buffer
	p.savedLastLineN = p.lastLineN
	p.buffer = strings.SplitAfter(HelpText, "\n")
	p.lastLineN = 0
	p.pageMode = true
	p.flushOnePage()
}

func (p *Pager) exitHelp() {
	p.helpMode = false
	p.buffer = p.savedBuffer
	p.lastLineN = p.savedLastLineN
	p.savedBuffer = nil
	p.pageMode = p.lastLineN < len(p.buffer)
	if p.pageMode {
		p.flushOnePage()
	} else {
		p.flushAll()
	}
}

// Reset clears the pager's buffer for a new command, matching the
// session invariant that the pipe chain (and its pager) starts empty.
func (p *Pager) Reset() {
	p.buffer = nil
	p.lastLineN = 0
	p.pageMode = false
	p.helpMode = false
	p.partial = ""
}
