package transport

import "errors"

var (
	// ErrWouldBlock is returned by stream primitives when the operation
	// cannot make progress yet. Resumable operations translate it into a
	// suspension: Poll returns (false, nil) and must be called again once
	// the stream is ready.
	ErrWouldBlock = errors.New("operation would block")

	// ErrTruncated indicates the peer closed the stream in the middle of a
	// frame, leaving fewer bytes than the frame header or declared length
	// requires. The connection must be abandoned.
	ErrTruncated = errors.New("stream truncated")

	// ErrShortBuffer indicates a scratch buffer smaller than an operation
	// requires even after growth. This is a configuration error, not peer
	// misbehavior.
	ErrShortBuffer = errors.New("scratch buffer too small")
)

// Reader is the receive half of a duplex byte stream.
//
// Peek is a non-destructive look-ahead: it fills p without consuming stream
// bytes. Both Peek and Read return ErrWouldBlock when they cannot be
// satisfied yet and the stream is still open; after the peer closes, they
// return the remaining bytes (possibly fewer than requested) and then
// io.EOF. A Peek that cannot deliver all of p must not deliver any of it
// unless the stream has closed.
type Reader interface {
	Peek(p []byte) (int, error)
	Read(p []byte) (int, error)
}

// Writer is the send half of a duplex byte stream. Write may accept fewer
// bytes than offered; Flush pushes any intermediate buffering toward the
// peer. Both return ErrWouldBlock when they cannot make progress yet.
type Writer interface {
	Write(p []byte) (int, error)
	Flush() error
}

// Stream is a full duplex byte stream: the single-handle configuration of
// the protocol, used for both directions at once.
type Stream interface {
	Reader
	Writer
}
