package ovium

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

const (
	defaultPort uint16 = 22
	defaultUser        = "root"
)

// rawConfig is the shape nodes.toml decodes into, before defaults are
// applied and before the group/node cross-reference is validated.
type rawConfig struct {
	Nodes  map[string]Node     `toml:"nodes"`
	Groups map[string][]string `toml:"groups"`
}

// A ServerConfig is the parsed, validated node/group namespace for
// one server process. It is built once at startup and never mutated
// again, so it can be shared by every request handler and worker
// goroutine through a single pointer with no additional locking.
type ServerConfig struct {
	nodes  map[string]Node
	groups map[string][]string
}

// LoadConfig reads <dir>/nodes.toml, applies per-node defaults
// (Port 22, User "root"), and validates that every group member names
// a known node.
func LoadConfig(dir string) (*ServerConfig, error) {
	path := filepath.Join(dir, "nodes.toml")

	var raw rawConfig
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, &Error{Kind: ErrConfigParse, Err: err}
	}

	if raw.Nodes == nil {
		raw.Nodes = map[string]Node{}
	}
	for name, n := range raw.Nodes {
		if n.Port == 0 {
			n.Port = defaultPort
		}
		if n.User == "" {
			n.User = defaultUser
		}
		raw.Nodes[name] = n
	}

	cfg := &ServerConfig{nodes: raw.Nodes, groups: raw.Groups}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate builds a single aggregated ConfigInvalid error listing every
// name mentioned in a group's member list that isn't a key of nodes.
func (c *ServerConfig) validate() error {
	unknown := map[string]bool{}
	for _, members := range c.groups {
		for _, m := range members {
			if _, ok := c.nodes[m]; !ok {
				unknown[m] = true
			}
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	names := make([]string, 0, len(unknown))
	for n := range unknown {
		names = append(names, n)
	}
	sort.Strings(names)

	return &Error{
		Kind:  ErrConfigInvalid,
		Nodes: names,
		Err:   fmt.Errorf("groups reference unknown nodes"),
	}
}

// IsNode reports whether name is a key of the node table.
func (c *ServerConfig) IsNode(name string) bool {
	_, ok := c.nodes[name]
	return ok
}

// IsGroup reports whether name is a key of the group table.
func (c *ServerConfig) IsGroup(name string) bool {
	_, ok := c.groups[name]
	return ok
}

// Members returns the (unexpanded, ungrouped) member list of the
// named group, or nil if name isn't a group.
func (c *ServerConfig) Members(name string) []string {
	members := c.groups[name]
	if members == nil {
		return nil
	}
	out := make([]string, len(members))
	copy(out, members)
	return out
}

// Node returns the named node record and whether it exists.
func (c *ServerConfig) Node(name string) (Node, bool) {
	n, ok := c.nodes[name]
	return n, ok
}

// NodeCount returns the number of configured nodes.
func (c *ServerConfig) NodeCount() int {
	return len(c.nodes)
}

// GroupCount returns the number of configured groups.
func (c *ServerConfig) GroupCount() int {
	return len(c.groups)
}
