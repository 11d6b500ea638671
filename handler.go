package ovium

import (
	"bufio"
	"fmt"
	"net"
	"sort"
	"sync"

	"github.com/jhunt/go-log"
)

// A Handler owns one accepted connection from read through response
// write. It is created fresh per connection by the server's accept
// loop. Config is shared read-only across every Handler a server ever
// creates. Executor, when set, overrides ExecuteCommand; tests set it
// to a stub so the fan-out never opens a real TCP connection.
type Handler struct {
	Config   *ServerConfig
	Executor Executor
}

// Handle reads exactly one framed Request off conn, dispatches it,
// and writes exactly one framed Response before returning. If the
// request cannot be read or decoded, it returns the error without
// writing a Response. conn is closed on return, clean or not.
func (h *Handler) Handle(conn net.Conn) error {
	defer conn.Close()

	frame, err := ReadFrame(bufio.NewReader(conn))
	if err != nil {
		return &Error{Kind: ErrIo, Err: err}
	}

	req, err := DecodeRequest(frame)
	if err != nil {
		return err
	}

	switch req.Kind {
	case KindCmd:
		return h.handleCmd(conn, *req.Cmd)
	default:
		return &Error{Kind: ErrDecode, Err: fmt.Errorf("unhandled request kind %q", req.Kind)}
	}
}

func (h *Handler) handleCmd(conn net.Conn, cmd CmdRequest) error {
	targets, unknown := h.expand(cmd.Nodes)
	if len(unknown) > 0 {
		return h.reply(conn, UnknownNodesResponse(unknown))
	}

	return h.reply(conn, CmdOK(h.fanOut(targets, cmd.Command)))
}

// expand resolves the raw node list against the config. If any input
// name is neither a node nor a group, it returns (nil, unknown) with
// unknown in the caller's original order, duplicates included; the
// request fails validation entirely rather than executing against the
// names that did resolve. Otherwise it returns (targets, nil): the
// sorted, deduplicated union of direct nodes and group memberships.
func (h *Handler) expand(names []string) (targets []string, unknown []string) {
	for _, n := range names {
		if h.Config.IsNode(n) || h.Config.IsGroup(n) {
			continue
		}
		unknown = append(unknown, n)
	}
	if len(unknown) > 0 {
		return nil, unknown
	}

	set := map[string]bool{}
	for _, n := range names {
		if h.Config.IsGroup(n) {
			for _, m := range h.Config.Members(n) {
				set[m] = true
			}
		} else {
			set[n] = true
		}
	}

	targets = make([]string, 0, len(set))
	for n := range set {
		targets = append(targets, n)
	}
	sort.Strings(targets)
	return targets, nil
}

// fanOut spawns one worker goroutine per target and waits for all of
// them to finish before returning. A worker that can't deliver its
// result onto the completion channel logs a warning and drops it.
func (h *Handler) fanOut(targets []string, command string) []CmdReturn {
	n := len(targets)
	completions := make(chan CmdReturn, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for _, name := range targets {
		go func(name string) {
			defer wg.Done()

			node, _ := h.Config.Node(name)
			outcome := h.executor()(node, command)

			select {
			case completions <- CmdReturn{NodeName: name, Data: outcome}:
			default:
				log.Warnf("[ovium] dropping result for node '%s': receiver already gone", name)
			}
		}(name)
	}
	wg.Wait()
	close(completions)

	results := make([]CmdReturn, 0, n)
	for r := range completions {
		results = append(results, r)
	}
	return results
}

func (h *Handler) executor() Executor {
	if h.Executor != nil {
		return h.Executor
	}
	return ExecuteCommand
}

func (h *Handler) reply(conn net.Conn, resp Response) error {
	frame, err := EncodeResponse(resp)
	if err != nil {
		return &Error{Kind: ErrIo, Err: err}
	}

	w := bufio.NewWriter(conn)
	if _, err := w.Write(frame); err != nil {
		return &Error{Kind: ErrIo, Err: err}
	}
	if err := w.Flush(); err != nil {
		return &Error{Kind: ErrIo, Err: err}
	}
	return nil
}
