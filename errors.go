package ovium

import "fmt"

// An ErrorKind identifies which stage of the system produced an
// error, so that callers (the CLI entrypoints, mostly) can apply a
// single consistent policy for logging and process exit codes.
type ErrorKind string

const (
	// ErrIo covers socket or file I/O failures.
	ErrIo ErrorKind = "io"

	// ErrSsh covers any failure within the node executor's dial,
	// handshake, auth, exec, or drain stages. Ssh errors are always
	// downgraded to a TransportFailure before they leave the node
	// executor; this kind exists for logging, not for propagation.
	ErrSsh ErrorKind = "ssh"

	// ErrDecode means a frame's payload was malformed or tagged
	// with a variant we don't recognize. Fatal to the connection,
	// never to the process.
	ErrDecode ErrorKind = "decode"

	// ErrConfigParse means nodes.toml could not be parsed.
	ErrConfigParse ErrorKind = "config_parse"

	// ErrConfigInvalid means nodes.toml parsed fine but references
	// group members that aren't in the node table.
	ErrConfigInvalid ErrorKind = "config_invalid"

	// ErrRequestUnknownNodes means a CmdRequest named nodes or
	// groups absent from the running config. Never fatal; reported
	// to the client as Response.Error.
	ErrRequestUnknownNodes ErrorKind = "request_unknown_nodes"

	// ErrBind means the Unix socket could not be bound.
	ErrBind ErrorKind = "bind"

	// ErrHandle wraps any error that escapes a connection handler.
	// Logged, connection dropped, server continues.
	ErrHandle ErrorKind = "handle"
)

// An Error carries an ErrorKind alongside the underlying cause and,
// for the two kinds that name offending nodes, the list of names.
type Error struct {
	Kind  ErrorKind
	Nodes []string
	Err   error
}

func (e *Error) Error() string {
	if len(e.Nodes) > 0 {
		return fmt.Sprintf("%s: %s %v", e.Kind, e.Err, e.Nodes)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
