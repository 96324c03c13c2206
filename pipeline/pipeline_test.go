package pipeline

import "testing"

type fakeCtl struct {
	hold, nomore bool
}

func (f *fakeCtl) SetHoldMode(v bool)   { f.hold = v }
func (f *fakeCtl) SetNoMoreMode(v bool) { f.nomore = v }

func TestMatchStage(t *testing.T) {
	c := NewChain(NewStage(Match, "a"))
	ctl := &fakeCtl{}
	if err := c.Start(ctl); err != nil {
		t.Fatal(err)
	}
	lines := []string{"a", "b", "a", "b", "a"}
	var kept []string
	for _, l := range lines {
		if out, ok := c.Feed(l); ok {
			kept = append(kept, out)
		}
	}
	if len(kept) != 3 {
		t.Fatalf("expected 3 matches, got %v", kept)
	}
}

func TestExceptStage(t *testing.T) {
	c := NewChain(NewStage(Except, "a"))
	ctl := &fakeCtl{}
	if err := c.Start(ctl); err != nil {
		t.Fatal(err)
	}
	var kept []string
	for _, l := range []string{"a", "b", "a", "b", "a"} {
		if out, ok := c.Feed(l); ok {
			kept = append(kept, out)
		}
	}
	if len(kept) != 2 {
		t.Fatalf("expected 2 non-matches, got %v", kept)
	}
}

func TestCountStage(t *testing.T) {
	c := NewChain(NewStage(Count, ""))
	ctl := &fakeCtl{}
	if err := c.Start(ctl); err != nil {
		t.Fatal(err)
	}
	for _, l := range []string{"a", "b", "a", "b", "a"} {
		c.Feed(l)
	}
	out := c.EOF(ctl)
	if len(out) != 1 || out[0] != "Count: 5 lines\n" {
		t.Fatalf("got %v", out)
	}
}

func TestFindStage(t *testing.T) {
	c := NewChain(NewStage(Find, "b"))
	ctl := &fakeCtl{}
	if err := c.Start(ctl); err != nil {
		t.Fatal(err)
	}
	var kept []string
	for _, l := range []string{"a", "a", "b", "a", "b"} {
		if out, ok := c.Feed(l); ok {
			kept = append(kept, out)
		}
	}
	if len(kept) != 3 {
		t.Fatalf("expected the match and everything after, got %v", kept)
	}
}

func TestHoldAndNoMoreSetSessionFlags(t *testing.T) {
	c := NewChain(NewStage(NoMore, ""), NewStage(Hold, ""))
	ctl := &fakeCtl{}
	if err := c.Start(ctl); err != nil {
		t.Fatal(err)
	}
	if !ctl.nomore {
		t.Fatal("no-more stage should set nomore mode on start")
	}
	c.EOF(ctl)
	if ctl.nomore {
		t.Fatal("no-more stage should clear nomore mode on eof")
	}
	if !ctl.hold {
		t.Fatal("hold stage should set hold mode on eof")
	}
}

func TestInvalidRegexFromStart(t *testing.T) {
	c := NewChain(NewStage(Match, "("))
	ctl := &fakeCtl{}
	err := c.Start(ctl)
	perr, ok := err.(*Error)
	if !ok || perr.Kind != RegexInvalid {
		t.Fatalf("expected RegexInvalid, got %v", err)
	}
}

func TestMissingArgs(t *testing.T) {
	c := NewChain(NewStage(Match, ""))
	ctl := &fakeCtl{}
	err := c.Start(ctl)
	perr, ok := err.(*Error)
	if !ok || perr.Kind != ArgsMissing {
		t.Fatalf("expected ArgsMissing, got %v", err)
	}
}

func TestChainEmptyAfterClear(t *testing.T) {
	c := NewChain(NewStage(Count, ""))
	if c.IsEmpty() {
		t.Fatal("chain with one stage should not be empty")
	}
	c.Clear()
	if !c.IsEmpty() {
		t.Fatal("chain should be empty after Clear")
	}
}
