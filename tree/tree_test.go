package tree

import "testing"

func buildTestTree(t *testing.T) *Tree {
	t.Helper()
	tr := New()
	if _, err := tr.AddCommand([]string{"show"}, "Show information", WithCd("show# ")); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.AddCommand([]string{"show", "version"}, "Show software version",
		WithProcess(func(args []string) ([]string, error) { return []string{"v1.0"}, nil }),
		WithPipe(),
	); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.AddCommand([]string{"show", "version-detail"}, "Show detailed version",
		WithProcess(func(args []string) ([]string, error) { return []string{"v1.0 detail"}, nil }),
	); err != nil {
		t.Fatal(err)
	}
	tr.AddPipes()
	return tr
}

func TestAddCommandOrdering(t *testing.T) {
	tr := buildTestTree(t)
	show := CommandFind(tr.Root(), "show")
	if show == nil {
		t.Fatal("expected show node")
	}
	children := show.Children()
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	if children[0].Name() != "version" || children[1].Name() != "version-detail" {
		t.Fatalf("children not lexicographically ordered: %v, %v", children[0].Name(), children[1].Name())
	}
}

func TestAddCommandMissingParent(t *testing.T) {
	tr := New()
	_, err := tr.AddCommand([]string{"show", "version"}, "x")
	terr, ok := err.(*Error)
	if !ok || terr.Kind != MissingParent {
		t.Fatalf("expected MissingParent error, got %v", err)
	}
}

func TestAddCommandExists(t *testing.T) {
	tr := buildTestTree(t)
	_, err := tr.AddCommand([]string{"show", "version"}, "dup")
	terr, ok := err.(*Error)
	if !ok || terr.Kind != CommandExists {
		t.Fatalf("expected CommandExists error, got %v", err)
	}
}

func TestCommandFindTypeMatchPriority(t *testing.T) {
	tr := New()
	if _, err := tr.AddCommand([]string{"ping"}, "ping a host",
		WithProcess(func(args []string) ([]string, error) { return nil, nil }),
		WithArgumentExpected(),
	); err != nil {
		t.Fatal(err)
	}
	ping := CommandFind(tr.Root(), "ping")
	if _, err := tr.AddCommand([]string{"ping", "literal-host"}, "a known literal host"); err != nil {
		t.Fatal(err)
	}
	_ = ping

	argNode := &CommandNode{
		name: "<host>",
		typeMatch: func(tok string) bool {
			return tok != "literal-host"
		},
	}
	pingNode := CommandFind(tr.Root(), "ping")
	argNode.parent = pingNode
	argNode.globalName = append(append([]string{}, pingNode.globalName...), argNode.name)
	insertSorted(pingNode, argNode)

	got := CommandFind(pingNode, "10.0.0.1")
	if got != argNode {
		t.Fatalf("expected type-match node for unmatched literal, got %v", got)
	}
	got2 := CommandFind(pingNode, "literal-host")
	if got2 == argNode {
		t.Fatal("literal-host should not satisfy the type-match predicate")
	}
}

func TestMultiCommandFind(t *testing.T) {
	tr := buildTestTree(t)
	node := MultiCommandFind(tr.Root(), "show version")
	if node == nil || node.Name() != "version" {
		t.Fatalf("expected version node, got %v", node)
	}
}

func TestIsMultiCommandPrefix(t *testing.T) {
	tr := buildTestTree(t)
	if !IsMultiCommandPrefix(tr.Root(), "show") {
		t.Fatal("'show' should be a strict command prefix")
	}
	if IsMultiCommandPrefix(tr.Root(), "show version") {
		t.Fatal("'show version' is a complete command, not a prefix")
	}
}

func TestDeleteCommand(t *testing.T) {
	tr := buildTestTree(t)
	if err := tr.DeleteCommand([]string{"show", "version-detail"}); err != nil {
		t.Fatal(err)
	}
	show := CommandFind(tr.Root(), "show")
	if len(show.Children()) != 1 {
		t.Fatalf("expected 1 child after delete, got %d", len(show.Children()))
	}
}

func TestCanComplete(t *testing.T) {
	tr := buildTestTree(t)
	show := CommandFind(tr.Root(), "show")
	if !show.CanComplete() {
		t.Fatal("show should be completable via allow_cd")
	}
	version := CommandFind(show, "version")
	if !version.CanComplete() {
		t.Fatal("show version should be completable via process_cb")
	}
}

type staticDynamicChildren struct {
	descs map[string]NodeDescriptor
}

func (d *staticDynamicChildren) Expand(globalName []string) map[string]NodeDescriptor {
	return d.descs
}

func TestDynamicChildrenExpansion(t *testing.T) {
	tr := New()
	dc := &staticDynamicChildren{descs: map[string]NodeDescriptor{
		"eth0": {Help: "interface eth0", Executable: true,
			ProcessCB: func(args []string) ([]string, error) { return []string{"up"}, nil }},
		"eth1": {Help: "interface eth1"},
	}}
	if _, err := tr.AddCommand([]string{"interfaces"}, "interfaces", WithDynamicChildren(dc)); err != nil {
		t.Fatal(err)
	}
	ifaces := CommandFind(tr.Root(), "interfaces")
	children := ifaces.Children()
	if len(children) != 2 {
		t.Fatalf("expected 2 dynamic children, got %d", len(children))
	}
	if children[0].Name() != "eth0" || children[1].Name() != "eth1" {
		t.Fatalf("dynamic children not lexicographically ordered: %v", children)
	}
	if children[0].ProcessCB() == nil {
		t.Fatal("eth0 should be executable")
	}
	if children[1].ProcessCB() != nil {
		t.Fatal("eth1 should not be executable")
	}
}

func TestCompleteTopLevelPrefix(t *testing.T) {
	tr := buildTestTree(t)
	out := Complete(tr.Root(), "sh", 2)
	if len(out) == 0 {
		t.Fatal("expected at least one completion for 'sh'")
	}
	found := false
	for _, c := range out {
		if c.Text == "ow " {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected suffix completion 'ow ', got %v", out)
	}
}

func TestCompleteEnterSentinel(t *testing.T) {
	tr := buildTestTree(t)
	show := CommandFind(tr.Root(), "show")
	version := CommandFind(show, "version")
	out := Complete(version, "", 0)
	found := false
	for _, c := range out {
		if c.Text == EnterCompletion {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected synthetic Enter completion, got %v", out)
	}
}

func TestCompleteNotACommand(t *testing.T) {
	tr := buildTestTree(t)
	out := Complete(tr.Root(), "bogus", 5)
	if len(out) != 1 || out[0].Text != NotACommandMessage {
		t.Fatalf("expected Not a XORP command message, got %v", out)
	}
}

func TestCompletePipeSubtreeRecursion(t *testing.T) {
	tr := buildTestTree(t)
	show := CommandFind(tr.Root(), "show")
	version := CommandFind(show, "version")

	line := "show version | mat"
	out := Complete(tr.Root(), line, len(line))
	found := false
	for _, c := range out {
		if c.Text == "ch " {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected pipe subtree completion 'ch ' for 'match', got %v", out)
	}

	// A bare trailing "|" lists the whole canonical pipe-command set.
	out2 := Complete(version, " | ", 3)
	if len(out2) < len(canonicalPipeCommands) {
		t.Fatalf("expected at least %d pipe command completions, got %d: %v", len(canonicalPipeCommands), len(out2), out2)
	}
}

func TestCompletePipeRequiresCanPipe(t *testing.T) {
	tr := buildTestTree(t)
	show := CommandFind(tr.Root(), "show")
	versionDetail := CommandFind(show, "version-detail")

	out := Complete(versionDetail, " | ", 3)
	if len(out) != 1 || out[0].Text != NotACommandMessage {
		t.Fatalf("expected Not a XORP command for pipe on a non-pipeable node, got %v", out)
	}
}

func TestPipeNodeFindsCanonicalCommands(t *testing.T) {
	tr := buildTestTree(t)
	pipeRoot := tr.PipeNode()
	if pipeRoot == nil {
		t.Fatal("expected AddPipes to install a pipe subtree")
	}
	if CommandFind(pipeRoot, "count") == nil {
		t.Fatal("expected 'count' to be found under the pipe subtree")
	}
}
