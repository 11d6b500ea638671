package ovium

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
)

// frameTerminator ends every frame. JSON encoding escapes control
// bytes, including embedded newlines in stdout/stderr text, inside its
// encoded strings, so a well-formed frame never contains a raw
// frameTerminator byte ahead of its own trailing one.
const frameTerminator = '\n'

// EncodeRequest frames a Request for the wire.
func EncodeRequest(r Request) ([]byte, error) {
	return encodeFrame(&r)
}

// EncodeResponse frames a Response for the wire.
func EncodeResponse(r Response) ([]byte, error) {
	return encodeFrame(&r)
}

func encodeFrame(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %s", err)
	}
	if bytes.IndexByte(b, frameTerminator) >= 0 {
		// Shouldn't happen; encoding/json escapes control bytes inside
		// string values. Refuse rather than ship a corrupt frame.
		return nil, fmt.Errorf("encode: payload contains an embedded frame terminator")
	}
	return append(b, frameTerminator), nil
}

// DecodeRequest unframes a single Request. b may or may not include
// the trailing frameTerminator; either is tolerated.
func DecodeRequest(b []byte) (Request, error) {
	var r Request
	if err := json.Unmarshal(trimTerminator(b), &r); err != nil {
		return Request{}, &Error{Kind: ErrDecode, Err: err}
	}

	switch r.Kind {
	case KindCmd:
		if r.Cmd == nil {
			return Request{}, &Error{Kind: ErrDecode, Err: fmt.Errorf("cmd request missing cmd payload")}
		}
	default:
		return Request{}, &Error{Kind: ErrDecode, Err: fmt.Errorf("unrecognized request kind %q", r.Kind)}
	}
	return r, nil
}

// DecodeResponse unframes a single Response.
func DecodeResponse(b []byte) (Response, error) {
	var r Response
	if err := json.Unmarshal(trimTerminator(b), &r); err != nil {
		return Response{}, &Error{Kind: ErrDecode, Err: err}
	}

	switch r.Kind {
	case KindRespCmd:
	case KindRespError:
		if r.Error == nil {
			return Response{}, &Error{Kind: ErrDecode, Err: fmt.Errorf("error response missing error payload")}
		}
	default:
		return Response{}, &Error{Kind: ErrDecode, Err: fmt.Errorf("unrecognized response kind %q", r.Kind)}
	}
	return r, nil
}

func trimTerminator(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == frameTerminator {
		return b[:n-1]
	}
	return b
}

// ReadFrame reads one LF-terminated frame (including the trailing
// LF) from r. It never consumes past the terminator, so r is left
// positioned exactly at the start of the next frame; r may already
// have buffered bytes of that next frame from the underlying stream.
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	return r.ReadBytes(frameTerminator)
}
