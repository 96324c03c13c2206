// Package pipeline implements the "|"-composed output-transform chain
// a command's output is run through before reaching the pager: count,
// match, except, find, hold, no-more, and the reserved save/resolve/
// trim/display stages.
//
// The source this is ported from modeled a pipe stage as a CliPipe
// subclass of CliCommand dispatched through a pointer-to-member-function
// table; that doesn't translate to Go cleanly, so a stage here is a
// tagged variant (Kind) with a single method set per spec.md's §9
// re-architecture guidance, not an interface hierarchy.
package pipeline

import (
	"regexp"
	"strconv"
)

// Kind identifies a pipe stage's behavior.
type Kind int

// nolint: golint
const (
	Count Kind = iota
	Match
	Except
	Find
	Hold
	NoMore
	Save
	Resolve
	Trim
	Display
	Compare
)

func (k Kind) String() string {
	switch k {
	case Count:
		return "count"
	case Match:
		return "match"
	case Except:
		return "except"
	case Find:
		return "find"
	case Hold:
		return "hold"
	case NoMore:
		return "no-more"
	case Save:
		return "save"
	case Resolve:
		return "resolve"
	case Trim:
		return "trim"
	case Display:
		return "display"
	case Compare:
		return "compare"
	default:
		return "unknown"
	}
}

// Error is returned from Stage construction or Start.
type Error struct {
	Kind ErrorKind
	Msg  string
}

// ErrorKind enumerates pipeline.Error variants (spec §7 PipeError).
type ErrorKind int

// nolint: golint
const (
	_ ErrorKind = iota
	RegexInvalid
	Unimplemented
	ArgsMissing
)

func (e *Error) Error() string { return e.Msg }

// SessionControl is the subset of session state a stage may toggle
// (hold mode, pagination suppression); session owns the real fields,
// a Stage only flips them through this narrow interface.
type SessionControl interface {
	SetHoldMode(bool)
	SetNoMoreMode(bool)
}

// Stage is one element of a Chain: a single mutable-line transform
// with start/process/eof hooks, matching the source's per-pipe
// lifecycle.
type Stage struct {
	kind    Kind
	arg     string
	re      *regexp.Regexp
	counter int
	seen    bool
}

// NewStage constructs a stage of the given kind with its argument (the
// regex source for match/except/find; unused otherwise). Construction
// does not compile the regex — that happens in Start, matching the
// source's "compile on start" lifecycle so a bad pattern is reported
// as a start error, not a construction error.
func NewStage(kind Kind, arg string) *Stage {
	return &Stage{kind: kind, arg: arg}
}

// Kind returns the stage's kind.
func (s *Stage) Kind() Kind { return s.kind }

// Start prepares the stage for a run: compiles its regex (match,
// except, find) and resets counters/flags.
func (s *Stage) Start(ctl SessionControl) error {
	switch s.kind {
	case Count:
		s.counter = 0
	case Match, Except, Find:
		if s.arg == "" {
			return &Error{Kind: ArgsMissing, Msg: "pipeline: " + s.kind.String() + " requires a pattern"}
		}
		re, err := regexp.Compile("(?i)" + s.arg)
		if err != nil {
			return &Error{Kind: RegexInvalid, Msg: "pipeline: invalid regex: " + err.Error()}
		}
		s.re = re
		s.seen = false
	case NoMore:
		ctl.SetNoMoreMode(true)
	case Hold, Save, Resolve, Trim, Display, Compare:
		// no start-time setup.
	}
	return nil
}

// Process runs one line through the stage. A returned empty string
// with ok=false means the line was cleared and the chain stops for
// this line; ok=true means line (possibly rewritten) continues to the
// next stage.
func (s *Stage) Process(line string) (out string, ok bool) {
	switch s.kind {
	case Count:
		if line != "" {
			s.counter++
		}
		return "", false
	case Match:
		if s.re.MatchString(line) {
			return line, true
		}
		return "", false
	case Except:
		if s.re.MatchString(line) {
			return "", false
		}
		return line, true
	case Find:
		if s.seen {
			return line, true
		}
		if s.re.MatchString(line) {
			s.seen = true
			return line, true
		}
		return "", false
	case Hold, NoMore:
		return line, true
	case Save, Resolve, Trim, Display, Compare:
		// Reserved stages: the source ships these as stubs ("NOT
		// IMPLEMENTED YET"). Passing the line through unmodified is
		// the chosen policy over Unimplemented (see design notes),
		// since failing every "| trim" in a script is worse than a
		// silent no-op for a rarely used stage.
		return line, true
	default:
		return line, true
	}
}

// EOF runs the stage's end-of-command hook, returning any trailing
// output it wants appended (e.g. count's summary line).
func (s *Stage) EOF(ctl SessionControl) string {
	switch s.kind {
	case Count:
		return "Count: " + strconv.Itoa(s.counter) + " lines\n"
	case Hold:
		ctl.SetHoldMode(true)
		return ""
	case NoMore:
		ctl.SetNoMoreMode(false)
		return ""
	default:
		return ""
	}
}

// Stop runs EOF plus whatever extra cleanup a stage needs when
// aborted mid-run (the source's "stop" is eof plus state reset).
func (s *Stage) Stop(ctl SessionControl) {
	s.EOF(ctl)
	s.re = nil
	s.seen = false
}

// Chain is an ordered sequence of stages a command's output runs
// through.
type Chain struct {
	stages []*Stage
}

// NewChain builds a Chain from stages in head-to-tail order.
func NewChain(stages ...*Stage) *Chain {
	return &Chain{stages: stages}
}

// Len reports the number of stages in the chain.
func (c *Chain) Len() int { return len(c.stages) }

// Start runs every stage's Start hook in order, unwinding (calling
// Stop on) already-started stages if one fails.
func (c *Chain) Start(ctl SessionControl) error {
	for i, st := range c.stages {
		if err := st.Start(ctl); err != nil {
			for j := i - 1; j >= 0; j-- {
				c.stages[j].Stop(ctl)
			}
			return err
		}
	}
	return nil
}

// Feed runs one line through every stage head-to-tail, stopping as
// soon as a stage clears it.
func (c *Chain) Feed(line string) (string, bool) {
	cur := line
	for _, st := range c.stages {
		out, ok := st.Process(cur)
		if !ok {
			return "", false
		}
		cur = out
	}
	return cur, true
}

// EOF runs every stage's eof hook and returns any stage-produced
// trailing text, in stage order.
func (c *Chain) EOF(ctl SessionControl) []string {
	var out []string
	for _, st := range c.stages {
		if text := st.EOF(ctl); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// IsEmpty reports whether the chain has no stages (post_process_command
// invariant: after completion the chain must be empty — see session).
func (c *Chain) IsEmpty() bool { return len(c.stages) == 0 }

// Clear empties the chain, matching the session invariant that the
// pipe chain is empty again after post_process_command runs.
func (c *Chain) Clear() { c.stages = nil }
