package main

import (
	fmt "github.com/jhunt/go-ansi"

	"github.com/jhunt/ovium"
)

// Dispatch inspects resp's variant and prints either the per-node
// results or the protocol-level error: a green header for a node whose
// command exited 0, a red one for everything else (non-zero exit,
// transport failure, or a top-level Response.Error).
func Dispatch(resp ovium.Response) {
	switch resp.Kind {
	case ovium.KindRespCmd:
		for _, r := range resp.Cmd {
			printReturn(r)
		}
	case ovium.KindRespError:
		printError(resp.Error)
	default:
		fmt.Printf("@R{unrecognized response kind '%s'}\n", resp.Kind)
	}
}

func printReturn(r ovium.CmdReturn) {
	switch r.Data.Kind {
	case ovium.KindSuccess:
		s := r.Data.Success
		if s.ExitStatus == 0 {
			fmt.Printf("@G{%s} (exit %d)\n", r.NodeName, s.ExitStatus)
		} else {
			fmt.Printf("@R{%s} (exit %d)\n", r.NodeName, s.ExitStatus)
		}
		if s.Stdout != nil {
			fmt.Printf("%s", *s.Stdout)
		}
		if s.Stderr != nil {
			fmt.Printf("@Y{stderr:} %s", *s.Stderr)
		}

	case ovium.KindTransportFailure:
		fmt.Printf("@R{%s} (transport failure)\n", r.NodeName)
		fmt.Printf("  %s\n", r.Data.Message)

	default:
		fmt.Printf("@R{%s} (unrecognized outcome '%s')\n", r.NodeName, r.Data.Kind)
	}
}

func printError(e *ovium.ResponseError) {
	if e == nil {
		fmt.Printf("@R{error: malformed response}\n")
		return
	}
	switch e.Kind {
	case ovium.KindUnknownNodes:
		fmt.Printf("@R{unknown node(s)/group(s):} %v\n", e.Nodes)
	default:
		fmt.Printf("@R{error: %s}\n", e.Kind)
	}
}
