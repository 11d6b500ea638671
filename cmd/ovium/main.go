package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jhunt/go-cli"
	env "github.com/jhunt/go-envirotron"
	"github.com/mattn/go-isatty"

	"github.com/jhunt/ovium"
)

var opts struct {
	Help bool `cli:"-h, --help"`

	Socket  string `cli:"-s, --socket"  env:"OVIUM_SOCKET"`
	Command string `cli:"-c, --command" env:"OVIUM_COMMAND"`
	Nodes   string `cli:"-n, --nodes"   env:"OVIUM_NODES"`
}

func usage() {
	fmt.Printf("ovium - Run a command across a set of nodes, in parallel\n")
	fmt.Printf("\n")
	fmt.Printf("USAGE: ovium -s SOCK -c COMMAND -n NODES\n")
	fmt.Printf("\n")
	fmt.Printf("  -s, --socket SOCK    Path to the oviumd Unix socket.\n")
	fmt.Printf("  -c, --command CMD    The remote shell command to run.\n")
	fmt.Printf("  -n, --nodes LIST     Comma-separated node or group names.\n")
	fmt.Printf("  -h, --help           Show this help screen.\n")
}

func main() {
	env.Override(&opts)

	_, _, err := cli.Parse(&opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "!!! %s\n", err)
		os.Exit(1)
	}

	if opts.Help {
		usage()
		os.Exit(0)
	}

	ok := true
	if opts.Socket == "" {
		fmt.Fprintf(os.Stderr, "Missing required --socket parameter (or OVIUM_SOCKET environment variable)\n")
		ok = false
	}
	if opts.Command == "" {
		fmt.Fprintf(os.Stderr, "Missing required --command parameter (or OVIUM_COMMAND environment variable)\n")
		ok = false
	}
	if opts.Nodes == "" {
		fmt.Fprintf(os.Stderr, "Missing required --nodes parameter (or OVIUM_NODES environment variable)\n")
		ok = false
	}
	if !ok {
		os.Exit(1)
	}

	var nodes []string
	for _, n := range strings.Split(opts.Nodes, ",") {
		n = strings.TrimSpace(n)
		if n != "" {
			nodes = append(nodes, n)
		}
	}

	if isatty.IsTerminal(1) {
		fmt.Fprintf(os.Stderr, "dispatching \"%s\" to %d node(s)/group(s)...\n", opts.Command, len(nodes))
	}

	c := &ovium.Client{SocketPath: opts.Socket}
	resp, err := c.Run(ovium.CmdReq(nodes, opts.Command))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}

	Dispatch(resp)
	os.Exit(0)
}
