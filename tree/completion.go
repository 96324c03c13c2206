package tree

import (
	"strings"

	"github.com/xorp-project/xorpcli/token"
)

// Completion is one line of a completion listing: either a name
// suffix with its help text, the synthetic "<[Enter]>" entry, or an
// error/status line such as the ambiguity or "Not a XORP command!"
// message.
type Completion struct {
	Text string
}

// EnterCompletion is the synthetic completion offered when a node is
// executable and takes no further required argument.
const EnterCompletion = "<[Enter]>   Execute this command"

// AmbiguousMessage formats the ambiguity diagnostic for a shared prefix.
func AmbiguousMessage(tok string) string {
	return "`" + tok + "' is ambiguous."
}

// NotACommandMessage is emitted when nothing in the tree matches.
const NotACommandMessage = "Not a XORP command!"

// Complete walks the tree from node over line (with the cursor at
// column cursor, a byte offset into line) and returns the completion
// listing per spec.md §4.3's six-step algorithm. It never mutates the
// tree beyond the idempotent dynamic-children expansion.
func Complete(node *CommandNode, line string, cursor int) []Completion {
	if cursor < 0 || cursor > len(line) {
		cursor = len(line)
	}
	return completeAt(node, line[:cursor], line[cursor:])
}

// completeAt completes head (the portion of the line up to the
// cursor) against node. Whether the first token of head is "complete"
// is decided from head alone; tail (the text after the cursor) is only
// carried along into the recursive calls.
func completeAt(node *CommandNode, head, tail string) []Completion {
	remaining := strings.TrimLeft(head, " \t")
	if remaining == "" {
		return completeChildren(node, "")
	}

	before := remaining
	firstTok, _ := token.Pop(&remaining)
	if firstTok == "" {
		return completeChildren(node, "")
	}

	if firstTok == "|" {
		// Step 4: "|" is always popped as its own complete token
		// (token.Pop never folds it into an adjoining word); recurse
		// into the shared pipe subtree with whatever follows it.
		if !node.CanPipe() {
			return []Completion{{Text: NotACommandMessage}}
		}
		root := node.pipeRoot()
		if root == nil {
			return []Completion{{Text: NotACommandMessage}}
		}
		return completeAt(root, remaining+tail, "")
	}

	// token.Pop stops at (without consuming) the separator that ends
	// the token, so a separator was typed iff anything of before is
	// left over after the token.
	separatorTyped := len(before) > 0 && remaining != ""

	if separatorTyped {
		// Step 2: first token already complete, recurse with remainder.
		next := CommandFind(node, firstTok)
		if next == nil {
			return []Completion{{Text: NotACommandMessage}}
		}
		return completeAt(next, remaining+tail, "")
	}

	// Cursor sits inside (or immediately after, with no separator
	// typed yet) the first token: step 1, offer prefix matches among
	// node's children.
	return completeChildren(node, firstTok)
}

// completeChildren implements steps 1, 3, 4, 5, 6 for a single prefix
// against node's children.
func completeChildren(node *CommandNode, prefix string) []Completion {
	var matches []*CommandNode
	var typeMatches []*CommandNode
	for _, c := range node.Children() {
		if c.typeMatch != nil {
			if prefix == "" || c.typeMatch(prefix) {
				typeMatches = append(typeMatches, c)
			}
			continue
		}
		if strings.HasPrefix(c.name, prefix) {
			matches = append(matches, c)
		}
	}

	var out []Completion
	for _, c := range typeMatches {
		out = append(out, Completion{Text: c.HelpCompletion()})
	}
	if len(matches) > 1 && prefix != "" {
		out = append(out, Completion{Text: AmbiguousMessage(prefix)})
	}
	for _, c := range matches {
		if len(matches) == 1 {
			out = append(out, Completion{Text: c.name[len(prefix):] + " "})
		}
		if c.help != "" {
			out = append(out, Completion{Text: c.HelpCompletion()})
		}
	}

	if node.CanComplete() && !node.isArgumentExpected && prefix == "" {
		out = append(out, Completion{Text: EnterCompletion})
	}

	if len(out) == 0 {
		return []Completion{{Text: NotACommandMessage}}
	}
	return out
}
