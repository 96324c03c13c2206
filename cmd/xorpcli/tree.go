package main

import (
	"fmt"

	"github.com/xorp-project/xorpcli/tree"
)

// buildCommandTree installs the small set of built-in commands this
// daemon ships with; a real deployment grows the tree further via the
// add_cli_command registration API (spec.md §6) as external modules
// attach.
func buildCommandTree() *tree.Tree {
	t := tree.New()

	mustAdd(t, []string{"show"}, "Display information", tree.WithCd("show# "))
	mustAdd(t, []string{"show", "version"}, "Display software version",
		tree.WithProcess(func(args []string) ([]string, error) {
			return []string{fmt.Sprintf("XORP CLI %s (%s)", version, gitCommit)}, nil
		}),
		tree.WithPipe(),
	)

	mustAdd(t, []string{"ping"}, "Send ICMP echo requests to a host",
		tree.WithServer("fea"),
		tree.WithArgumentExpected(),
		tree.WithInterrupt(func(args []string) {}),
	)

	mustAdd(t, []string{"exit"}, "Exit this CLI session",
		tree.WithProcess(func(args []string) ([]string, error) {
			return nil, nil
		}),
	)

	t.AddPipes()
	return t
}

func mustAdd(t *tree.Tree, path []string, help string, opts ...tree.NodeOption) {
	if _, err := t.AddCommand(path, help, opts...); err != nil {
		panic(err)
	}
}
