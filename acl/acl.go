// Package acl implements the CLI's source-address access control:
// two independent (v4 and v6) prefix lists, enable and disable, with
// a longest-matching-prefix tie-break, per spec.md §4.8.
package acl

import "net"

// List holds the enable/disable subnet lists for one address family;
// v4 and v6 are tracked independently by using two Lists.
type List struct {
	enable  []*net.IPNet
	disable []*net.IPNet
}

// New returns an empty ACL list (default allow: see Allowed).
func New() *List {
	return &List{}
}

// AddEnable registers ipnet as an allow-listed subnet.
func (l *List) AddEnable(ipnet *net.IPNet) {
	l.enable = append(l.enable, ipnet)
}

// DeleteEnable removes ipnet from the allow list, if present.
func (l *List) DeleteEnable(ipnet *net.IPNet) {
	l.enable = removeNet(l.enable, ipnet)
}

// AddDisable registers ipnet as a deny-listed subnet.
func (l *List) AddDisable(ipnet *net.IPNet) {
	l.disable = append(l.disable, ipnet)
}

// DeleteDisable removes ipnet from the deny list, if present.
func (l *List) DeleteDisable(ipnet *net.IPNet) {
	l.disable = removeNet(l.disable, ipnet)
}

func removeNet(list []*net.IPNet, target *net.IPNet) []*net.IPNet {
	out := list[:0]
	for _, n := range list {
		if n.String() == target.String() {
			continue
		}
		out = append(out, n)
	}
	return out
}

// longestMatch returns the matching net with the greatest prefix
// length, and that length, or (nil, -1) if nothing matches.
func longestMatch(list []*net.IPNet, addr net.IP) (*net.IPNet, int) {
	var best *net.IPNet
	bestLen := -1
	for _, n := range list {
		if !n.Contains(addr) {
			continue
		}
		ones, _ := n.Mask.Size()
		if ones > bestLen {
			best = n
			bestLen = ones
		}
	}
	return best, bestLen
}

// Allowed reports whether addr may open a CLI session: access is
// allowed iff either no disable prefix matches, or an enable prefix
// matches with a strictly longer prefix length than the matching
// disable prefix. With no disable entries at all the default is
// allow; with disable entries but no matching enable, the default is
// deny.
func (l *List) Allowed(addr net.IP) bool {
	_, disableLen := longestMatch(l.disable, addr)
	if disableLen < 0 {
		return true
	}
	_, enableLen := longestMatch(l.enable, addr)
	return enableLen > disableLen
}
