package ovium

import (
	"bufio"
	"net"
)

// A Client is the dual of the codec on the client side: one round
// trip per connection, no multiplexing, no retries. It has no identity
// or keys of its own; trust is conveyed entirely by filesystem
// permissions on SocketPath.
type Client struct {
	SocketPath string
}

// Run connects to the server, writes one framed Request, flushes, reads
// exactly one framed Response back, and decodes it. The connection is
// closed on return regardless of outcome.
func (c *Client) Run(req Request) (Response, error) {
	conn, err := net.Dial("unix", c.SocketPath)
	if err != nil {
		return Response{}, &Error{Kind: ErrIo, Err: err}
	}
	defer conn.Close()

	frame, err := EncodeRequest(req)
	if err != nil {
		return Response{}, &Error{Kind: ErrIo, Err: err}
	}

	w := bufio.NewWriter(conn)
	if _, err := w.Write(frame); err != nil {
		return Response{}, &Error{Kind: ErrIo, Err: err}
	}
	if err := w.Flush(); err != nil {
		return Response{}, &Error{Kind: ErrIo, Err: err}
	}

	respFrame, err := ReadFrame(bufio.NewReader(conn))
	if err != nil {
		return Response{}, &Error{Kind: ErrIo, Err: err}
	}

	return DecodeResponse(respFrame)
}
