package main

import (
	"fmt"
	"os"

	"github.com/jhunt/go-cli"
	env "github.com/jhunt/go-envirotron"
	"github.com/jhunt/go-log"

	"github.com/jhunt/ovium"
)

var opts struct {
	LogLevel string `cli:"-L, --log-level" env:"OVIUM_LOG_LEVEL"`
	Help     bool   `cli:"-h, --help"`

	Socket    string `cli:"-s, --socket"     env:"OVIUM_SOCKET"`
	ConfigDir string `cli:"-c, --config-dir" env:"OVIUM_CONFIG_DIR"`
}

func usage() {
	fmt.Printf("oviumd - Parallel remote command execution daemon\n")
	fmt.Printf("\n")
	fmt.Printf("USAGE: oviumd -s SOCK -c CONFIG-DIR\n")
	fmt.Printf("\n")
	fmt.Printf("  -s, --socket SOCK        Path to the Unix socket to bind.\n")
	fmt.Printf("  -c, --config-dir DIR     Directory containing nodes.toml.\n")
	fmt.Printf("  -L, --log-level LEVEL    How chatty to be (default: info).\n")
	fmt.Printf("  -h, --help               Show this help screen.\n")
}

func main() {
	opts.LogLevel = "info"
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

	log.SetupLogging(log.LogConfig{
		Type:  "console",
		Level: opts.LogLevel,
	})

	if opts.Socket == "" {
		fmt.Fprintf(os.Stderr, "Missing required --socket parameter (or OVIUM_SOCKET environment variable)\n")
		os.Exit(1)
	}
	if opts.ConfigDir == "" {
		fmt.Fprintf(os.Stderr, "Missing required --config-dir parameter (or OVIUM_CONFIG_DIR environment variable)\n")
		os.Exit(1)
	}

	cfg, err := ovium.LoadConfig(opts.ConfigDir)
	if err != nil {
		log.Errorf("[oviumd] unable to load configuration from %s: %s", opts.ConfigDir, err)
		os.Exit(1)
	}

	s := &ovium.Server{
		SocketPath: opts.Socket,
		Config:     cfg,
	}

	if err := s.Listen(); err != nil {
		log.Errorf("[oviumd] unable to bind %s: %s", opts.Socket, err)
		os.Exit(1)
	}

	log.Infof("[oviumd] listening on %s; %d node(s), %d group(s) configured", opts.Socket, cfg.NodeCount(), cfg.GroupCount())
	if err := s.Serve(); err != nil {
		log.Errorf("[oviumd] %s", err)
		os.Exit(1)
	}

	os.Exit(0)
}
