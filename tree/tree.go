// Package tree implements the XORP CLI command tree: a recursive node
// hierarchy with lexicographically ordered children, type-matched
// argument nodes, and lazily-expanded dynamic children, adapted in
// style from the teacher's getter/setter state structs
// (session.go's Session) generalized to a tree of nodes instead of a
// flat record.
package tree

import (
	"sort"
	"strings"

	"github.com/xorp-project/xorpcli/token"
)

// Error is returned by tree mutation operations.
type Error struct {
	Kind Kind
	Path []string
}

// Kind enumerates tree.Error variants (spec §7 TreeError).
type Kind int

// nolint: golint
const (
	_ Kind = iota
	CommandExists
	MissingParent
	Immutable
)

func (e *Error) Error() string {
	switch e.Kind {
	case CommandExists:
		return "tree: command already exists: " + strings.Join(e.Path, " ")
	case MissingParent:
		return "tree: missing parent for: " + strings.Join(e.Path, " ")
	case Immutable:
		return "tree: node is immutable: " + strings.Join(e.Path, " ")
	default:
		return "tree: error"
	}
}

// ProcessFunc runs a node's in-process command. It returns output lines
// (fed into the pipe chain / pager) or an error.
type ProcessFunc func(args []string) ([]string, error)

// InterruptFunc is invoked on Ctrl-C for a command that is currently
// executing (typically a remote/async one; see the dispatch package).
type InterruptFunc func(args []string)

// TypeMatch decides whether a token is accepted by an argument node
// (e.g. "any syntactically valid IPv4 address") instead of matching a
// literal keyword.
type TypeMatch func(token string) bool

// NodeDescriptor is what a DynamicChildren callback returns for each
// generated child: every static attribute a CommandNode can carry,
// minus the tree-structural bits (name/parent/children), which the
// tree assigns at insertion time.
type NodeDescriptor struct {
	Help               string
	CdPrompt           string
	AllowCD            bool
	CanPipe            bool
	DefaultNoMoreMode  bool
	IsCommandArgument  bool
	IsArgumentExpected bool
	TypeMatch          TypeMatch
	Executable         bool // whether ProcessCB should be considered present
	ProcessCB          ProcessFunc
	InterruptCB        InterruptFunc
	ServerName         string
	DynamicChildren     DynamicChildren
}

// DynamicChildren lazily generates a node's children on first access.
type DynamicChildren interface {
	Expand(globalName []string) map[string]NodeDescriptor
}

// CommandNode is one node of the command tree. See spec.md §3 for the
// field-level contract.
type CommandNode struct {
	name       string
	globalName []string
	parent     *CommandNode
	children   []*CommandNode

	help               string
	cdPrompt           string
	allowCD            bool
	canPipe            bool
	defaultNoMoreMode  bool
	isCommandArgument  bool
	isArgumentExpected bool
	typeMatch          TypeMatch
	processCB          ProcessFunc
	interruptCB        InterruptFunc
	serverName         string

	dynamicChildren    DynamicChildren
	hasDynamicChildren bool
	dynamicExpanded    bool

	owner *Tree
}

// Name returns the node's local name.
func (n *CommandNode) Name() string { return n.name }

// GlobalName returns the fully-qualified token path from root.
func (n *CommandNode) GlobalName() []string {
	out := make([]string, len(n.globalName))
	copy(out, n.globalName)
	return out
}

// GlobalNameString joins GlobalName with spaces.
func (n *CommandNode) GlobalNameString() string {
	return strings.Join(n.globalName, " ")
}

// Parent returns the node's parent, or nil for the root.
func (n *CommandNode) Parent() *CommandNode { return n.parent }

// Help returns the node's help text.
func (n *CommandNode) Help() string { return n.help }

// HelpCompletion auto-formats Help for a completion listing:
// "  name               help text".
func (n *CommandNode) HelpCompletion() string {
	label := n.name
	if len(label) > 18 {
		label = label[:18]
	}
	return "  " + label + strings.Repeat(" ", 19-len(label)) + n.help
}

// CdPrompt returns the prompt override this node installs when entered.
func (n *CommandNode) CdPrompt() string { return n.cdPrompt }

// AllowCD reports whether this node can become the session's current node.
func (n *CommandNode) AllowCD() bool { return n.allowCD }

// CanPipe reports whether this command's output may be piped.
func (n *CommandNode) CanPipe() bool { return n.canPipe }

// DefaultNoMoreMode reports this node's default pagination behavior.
func (n *CommandNode) DefaultNoMoreMode() bool { return n.defaultNoMoreMode }

// IsCommandArgument reports whether this node stands in for a
// user-supplied value rather than a literal keyword.
func (n *CommandNode) IsCommandArgument() bool { return n.isCommandArgument }

// IsArgumentExpected reports whether executing this command requires
// at least one further argument.
func (n *CommandNode) IsArgumentExpected() bool { return n.isArgumentExpected }

// TypeMatch returns the node's type-match predicate, or nil.
func (n *CommandNode) TypeMatch() TypeMatch { return n.typeMatch }

// ProcessCB returns the node's in-process handler, or nil.
func (n *CommandNode) ProcessCB() ProcessFunc { return n.processCB }

// InterruptCB returns the node's interrupt handler, or nil.
func (n *CommandNode) InterruptCB() InterruptFunc { return n.interruptCB }

// ServerName returns the remote module name that executes this command, if any.
func (n *CommandNode) ServerName() string { return n.serverName }

// CanComplete reports whether this node is complete as typed: it is
// executable, or it can be cd'd into. Completion offers the synthetic
// "<[Enter]>" line for such a node unless it expects a further argument.
func (n *CommandNode) CanComplete() bool {
	return n.processCB != nil || n.allowCD
}

// pipeRoot returns the owning Tree's shared pipe-command subtree, or
// nil if the tree never installed one via AddPipes.
func (n *CommandNode) pipeRoot() *CommandNode {
	if n.owner == nil {
		return nil
	}
	return n.owner.pipeNode
}

// Children returns the node's children in lexicographic order,
// expanding dynamic children on first access.
func (n *CommandNode) Children() []*CommandNode {
	if n.hasDynamicChildren && !n.dynamicExpanded {
		n.expandDynamic()
	}
	return n.children
}

func (n *CommandNode) expandDynamic() {
	n.dynamicExpanded = true
	n.hasDynamicChildren = false
	if n.dynamicChildren == nil {
		return
	}
	descs := n.dynamicChildren.Expand(n.GlobalName())
	names := make([]string, 0, len(descs))
	for name := range descs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		d := descs[name]
		child := newNodeFromDescriptor(n, name, d)
		n.children = append(n.children, child)
	}
}

func newNodeFromDescriptor(parent *CommandNode, name string, d NodeDescriptor) *CommandNode {
	child := &CommandNode{
		name:               name,
		parent:             parent,
		help:               d.Help,
		cdPrompt:           d.CdPrompt,
		allowCD:            d.AllowCD,
		canPipe:            d.CanPipe,
		defaultNoMoreMode:  d.DefaultNoMoreMode,
		isCommandArgument:  d.IsCommandArgument,
		isArgumentExpected: d.IsArgumentExpected,
		typeMatch:          d.TypeMatch,
		interruptCB:        d.InterruptCB,
		serverName:         d.ServerName,
		dynamicChildren:    d.DynamicChildren,
	}
	if d.Executable {
		child.processCB = d.ProcessCB
	}
	if child.dynamicChildren != nil {
		child.hasDynamicChildren = true
	}
	child.globalName = append(append([]string{}, parent.globalName...), name)
	child.owner = parent.owner
	return child
}

// Tree owns the root of the command namespace and the shared pipe subtree.
type Tree struct {
	root     *CommandNode
	pipeNode *CommandNode
}

// New returns an empty command tree with just a root node.
func New() *Tree {
	t := &Tree{}
	t.root = &CommandNode{name: "", globalName: nil, owner: t}
	return t
}

// Root returns the tree's root node.
func (t *Tree) Root() *CommandNode { return t.root }

// pipeCommandSpec is one entry of the canonical pipe-command set
// AddPipes installs.
type pipeCommandSpec struct {
	name               string
	help               string
	isArgumentExpected bool
}

// canonicalPipeCommands is the fixed set of pipe stages spec.md §4.4
// names. AddPipes inserts them in sorted order, so completion offers
// them lexicographically, not in the order listed here.
var canonicalPipeCommands = []pipeCommandSpec{
	{"count", "Count number of lines in the output", false},
	{"match", "Show only lines that match a pattern", true},
	{"except", "Show only lines that do not match a pattern", true},
	{"find", "Search output for a pattern, suppressing all lines until the first match", true},
	{"hold", "Hold the output until all lines have been displayed", false},
	{"no-more", "Don't paginate the output", false},
	{"save", "Save the output to a file", true},
	{"resolve", "Resolve IP addresses to host names", false},
	{"trim", "Trim leading whitespace from each line", false},
	{"display", "Display output in an alternate format", false},
	{"compare", "Compare the output against a previous run", true},
}

// AddPipes installs the canonical pipe command set as children of the
// root-associated pipe node, shared across every real command that
// has can_pipe set (spec.md §4.2). It is idempotent: calling it again
// after the pipe subtree already exists is a no-op.
func (t *Tree) AddPipes() {
	if t.pipeNode != nil {
		return
	}
	t.pipeNode = &CommandNode{name: "|", globalName: []string{"|"}, owner: t}
	for _, sp := range canonicalPipeCommands {
		child := &CommandNode{
			name:               sp.name,
			parent:             t.pipeNode,
			globalName:         append(append([]string{}, t.pipeNode.globalName...), sp.name),
			help:               sp.help,
			isArgumentExpected: sp.isArgumentExpected,
			owner:              t,
		}
		insertSorted(t.pipeNode, child)
	}
}

// PipeNode returns the shared pipe subtree root installed by AddPipes,
// or nil if AddPipes was never called.
func (t *Tree) PipeNode() *CommandNode { return t.pipeNode }

// NodeOption configures attributes of a node created by AddCommand.
type NodeOption func(*CommandNode)

// WithCd marks the node enterable and sets its cd-prompt.
func WithCd(prompt string) NodeOption {
	return func(n *CommandNode) {
		n.allowCD = true
		n.cdPrompt = prompt
	}
}

// WithPipe marks the node's output as pipeable.
func WithPipe() NodeOption {
	return func(n *CommandNode) { n.canPipe = true }
}

// WithDefaultNoMore sets the node's default pagination behavior.
func WithDefaultNoMore(v bool) NodeOption {
	return func(n *CommandNode) { n.defaultNoMoreMode = v }
}

// WithArgumentExpected marks the node as requiring a further argument to run.
func WithArgumentExpected() NodeOption {
	return func(n *CommandNode) { n.isArgumentExpected = true }
}

// WithCommandArgument marks the node as representing a user-supplied value.
func WithCommandArgument(match TypeMatch) NodeOption {
	return func(n *CommandNode) {
		n.isCommandArgument = true
		n.typeMatch = match
	}
}

// WithProcess installs an in-process handler, making the node executable.
func WithProcess(cb ProcessFunc) NodeOption {
	return func(n *CommandNode) { n.processCB = cb }
}

// WithInterrupt installs an interrupt handler for an executing command.
func WithInterrupt(cb InterruptFunc) NodeOption {
	return func(n *CommandNode) { n.interruptCB = cb }
}

// WithServer marks the node as executed by a named remote module.
func WithServer(name string) NodeOption {
	return func(n *CommandNode) { n.serverName = name }
}

// WithDynamicChildren installs a lazy child-expansion callback.
func WithDynamicChildren(dc DynamicChildren) NodeOption {
	return func(n *CommandNode) {
		n.dynamicChildren = dc
		n.hasDynamicChildren = true
	}
}

// AddCommand installs a node at path, where every ancestor in path[:-1]
// must already exist. Returns TreeError.MissingParent if an ancestor is
// absent, or TreeError.CommandExists if a sibling by that name already
// exists.
func (t *Tree) AddCommand(path []string, help string, opts ...NodeOption) (*CommandNode, error) {
	if len(path) == 0 {
		return nil, &Error{Kind: MissingParent, Path: path}
	}
	parent := t.root
	for _, name := range path[:len(path)-1] {
		next := staticChildByName(parent, name)
		if next == nil {
			return nil, &Error{Kind: MissingParent, Path: path}
		}
		parent = next
	}
	leaf := path[len(path)-1]
	if staticChildByName(parent, leaf) != nil {
		return nil, &Error{Kind: CommandExists, Path: path}
	}

	node := &CommandNode{
		name:       leaf,
		parent:     parent,
		globalName: append(append([]string{}, parent.globalName...), leaf),
		help:       help,
		owner:      parent.owner,
	}
	for _, opt := range opts {
		opt(node)
	}
	insertSorted(parent, node)
	return node, nil
}

// staticChildByName looks up a literal (non-dynamic) child by exact
// name without forcing dynamic expansion — used by AddCommand /
// DeleteCommand, which only ever operate on the static tree.
func staticChildByName(parent *CommandNode, name string) *CommandNode {
	for _, c := range parent.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func insertSorted(parent *CommandNode, node *CommandNode) {
	i := sort.Search(len(parent.children), func(i int) bool {
		return parent.children[i].name > node.name
	})
	parent.children = append(parent.children, nil)
	copy(parent.children[i+1:], parent.children[i:])
	parent.children[i] = node
}

// DeleteCommand removes the node at path and its entire subtree.
func (t *Tree) DeleteCommand(path []string) error {
	if len(path) == 0 {
		return &Error{Kind: MissingParent, Path: path}
	}
	parent := t.root
	for _, name := range path[:len(path)-1] {
		next := staticChildByName(parent, name)
		if next == nil {
			return &Error{Kind: MissingParent, Path: path}
		}
		parent = next
	}
	leaf := path[len(path)-1]
	for i, c := range parent.children {
		if c.name == leaf {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			return nil
		}
	}
	return &Error{Kind: MissingParent, Path: path}
}

// CommandFind performs a single-token lookup among node's children: a
// child with a TypeMatch predicate accepting token takes priority over
// literal name equality (spec.md §4.2).
func CommandFind(node *CommandNode, tok string) *CommandNode {
	for _, c := range node.Children() {
		if c.typeMatch != nil && c.typeMatch(tok) {
			return c
		}
	}
	for _, c := range node.Children() {
		if c.typeMatch == nil && c.name == tok {
			return c
		}
	}
	return nil
}

// MultiCommandFind repeatedly applies CommandFind while consuming
// tokens from line, returning the deepest node reached.
func MultiCommandFind(root *CommandNode, line string) *CommandNode {
	tmp := line
	parent := root
	var child *CommandNode
	for {
		tok, _ := token.Pop(&tmp)
		if tok == "" {
			break
		}
		next := CommandFind(parent, tok)
		if next != nil {
			parent = next
			child = next
			continue
		}
		if parent.processCB != nil {
			child = parent
		}
		break
	}
	return child
}

// IsMultiCommandPrefix reports whether line is a strict prefix of some
// multi-token command but is not itself a complete command.
func IsMultiCommandPrefix(root *CommandNode, line string) bool {
	tmp := line
	parent := root
	consumed := 0
	for {
		tok, _ := token.Pop(&tmp)
		if tok == "" {
			break
		}
		next := CommandFind(parent, tok)
		if next == nil {
			return false
		}
		parent = next
		consumed++
	}
	if consumed == 0 {
		return false
	}
	return len(parent.Children()) > 0 && parent.processCB == nil
}
