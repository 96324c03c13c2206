// xorpcli daemon
//
// Serves the XORP operator command-line interface: binds a telnet
// listener, accepts sessions against a source-address ACL, and walks
// each client's input through the shared command tree.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"net"
	"os"
	"os/signal"
	"os/user"
	"syscall"

	isatty "github.com/mattn/go-isatty"

	"github.com/xorp-project/xorpcli/acl"
	"github.com/xorp-project/xorpcli/cliserver"
	"github.com/xorp-project/xorpcli/dispatch"
	"github.com/xorp-project/xorpcli/internal/acct"
	"github.com/xorp-project/xorpcli/internal/ttyio"
	"github.com/xorp-project/xorpcli/internal/xlog"
)

var (
	version   string
	gitCommit string // set in -ldflags by build
)

// stubRemote is the Dispatcher wiring point for an external RPC/FEA
// collaborator; this core only needs somewhere to plug a real one in
// (spec.md §1: RPC execution is an external subsystem's concern).
type stubRemote struct{}

func (stubRemote) Send(target, serverName, termName string, sessionID uint32, commandGlobalName, argsJoined string) {
	xlog.Notice(fmt.Sprintf("dispatch: send target=%s server=%s term=%s id=%d cmd=%q args=%q",
		target, serverName, termName, sessionID, commandGlobalName, argsJoined)) // nolint: errcheck
}

func (stubRemote) Interrupt(serverName, termName string, sessionID uint32, commandGlobalName string, args []string) {
	xlog.Notice(fmt.Sprintf("dispatch: interrupt server=%s term=%s id=%d cmd=%q",
		serverName, termName, sessionID, commandGlobalName)) // nolint: errcheck
}

func main() {
	var vopt bool
	var dbg bool
	var laddr string
	var enableSubnets string
	var disableSubnets string

	flag.BoolVar(&vopt, "v", false, "show version")
	flag.StringVar(&laddr, "l", ":2605", "interface[:port] to listen")
	flag.BoolVar(&dbg, "d", false, "debug logging")
	flag.StringVar(&enableSubnets, "aE", "", "comma-separated list of CIDR subnets to enable CLI access from (default: allow all)")
	flag.StringVar(&disableSubnets, "aD", "", "comma-separated list of CIDR subnets to disable CLI access from")
	flag.Parse()

	if vopt {
		fmt.Printf("version %s (%s)\n", version, gitCommit)
		os.Exit(0)
	}

	if _, err := xlog.New(xlog.LOG_DAEMON|xlog.LOG_DEBUG|xlog.LOG_NOTICE|xlog.LOG_ERR, "xorpcli"); err != nil { // nolint: gosec
		log.Fatal(err)
	}
	defer xlog.Close() // nolint: errcheck
	xlog.SetDebug(dbg)
	if dbg {
		log.SetOutput(xlog.Sink{})
	} else {
		log.SetOutput(ioutil.Discard)
	}

	list := acl.New()
	for _, cidr := range splitNonEmpty(enableSubnets) {
		if _, n, err := net.ParseCIDR(cidr); err == nil {
			list.AddEnable(n)
		} else {
			xlog.Err(fmt.Sprintf("xorpcli: bad enable subnet %q: %v", cidr, err)) // nolint: errcheck
		}
	}
	for _, cidr := range splitNonEmpty(disableSubnets) {
		if _, n, err := net.ParseCIDR(cidr); err == nil {
			list.AddDisable(n)
		} else {
			xlog.Err(fmt.Sprintf("xorpcli: bad disable subnet %q: %v", cidr, err)) // nolint: errcheck
		}
	}

	cmdTree := buildCommandTree()
	dispatcher := dispatch.NewManager(stubRemote{})

	mgr, err := cliserver.NewManager(laddr, cmdTree, dispatcher, list)
	if err != nil {
		log.Fatal(err)
	}

	exitCh := make(chan os.Signal, 1)
	signal.Notify(exitCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	go func() {
		for sig := range exitCh {
			switch sig {
			case syscall.SIGHUP:
				xlog.Notice("xorpcli: got SIGHUP, ignoring") // nolint: errcheck
			default:
				xlog.Notice(fmt.Sprintf("xorpcli: got signal %v, shutting down", sig)) // nolint: errcheck
				mgr.Close()
				os.Exit(0)
			}
		}
	}()

	if isatty.IsTerminal(os.Stdin.Fd()) {
		if state, err := ttyio.MakeRaw(os.Stdin.Fd()); err == nil {
			defer ttyio.Restore(os.Stdin.Fd(), state) // nolint: errcheck
		}
		go runLocalSession(mgr)
	}

	xlog.Notice(fmt.Sprintf("xorpcli: serving on %s", laddr)) // nolint: errcheck
	log.Println("Serving on", laddr)
	if err := mgr.Serve(); err != nil {
		log.Fatal(err)
	}
}

// stdioTransport is the session.Transport for a CLI session running
// directly on the controlling TTY rather than over a telnet
// connection (spec.md §1's second named session type).
type stdioTransport struct{}

func (stdioTransport) Write(b []byte) (int, error) { return os.Stdout.Write(b) }
func (stdioTransport) Close() error                 { return nil }

// runLocalSession serves one CLI session directly on stdin/stdout,
// registering it in utmp/wtmp the way a real login shell would
// (spec.md §3/§4.6). It runs for the lifetime of the process, in
// parallel with the network accept loop in mgr.Serve.
func runLocalSession(mgr *cliserver.Manager) {
	sess, err := mgr.NewLocalSession(stdioTransport{})
	if err != nil {
		xlog.Err(fmt.Sprintf("xorpcli: local session: %v", err)) // nolint: errcheck
		return
	}
	defer mgr.ReleaseLocalSession(sess)

	who := "unknown"
	if u, err := user.Current(); err == nil {
		who = u.Username
	}
	sess.SetUser(who)
	acctHandle := acct.Open("xorpcli", who, sess.TermName(), "")
	defer acctHandle.Close()

	buf := make([]byte, 256)
	for {
		n, err := os.Stdin.Read(buf)
		if n == 0 || err != nil {
			return
		}
		for i := 0; i < n; i++ {
			if ferr := sess.FeedByte(buf[i]); ferr != nil {
				xlog.Notice(fmt.Sprintf("xorpcli: local session %s fatal: %v", sess.TermName(), ferr)) // nolint: errcheck
				return
			}
		}
	}
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
