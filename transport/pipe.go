package transport

import (
	"io"
	"sync"
)

// pipeBuffer is one direction of an in-memory duplex pair.
type pipeBuffer struct {
	data   []byte
	closed bool // no more writes will arrive
}

// PipeEnd is one end of an in-memory duplex stream pair. It implements
// Stream with the non-blocking would-block contract, which makes it the
// loopback transport for cooperative schedulers and tests.
type PipeEnd struct {
	mu     *sync.Mutex
	recv   *pipeBuffer // bytes the peer wrote to us
	send   *pipeBuffer // bytes we write to the peer
	closed bool        // our send direction is closed
}

// Pipe creates a connected in-memory duplex pair. Writes on one end become
// readable on the other; there is no internal capacity limit.
func Pipe() (*PipeEnd, *PipeEnd) {
	mu := &sync.Mutex{}
	ab := &pipeBuffer{}
	ba := &pipeBuffer{}
	return &PipeEnd{mu: mu, recv: ba, send: ab}, &PipeEnd{mu: mu, recv: ab, send: ba}
}

// Peek fills p without consuming stream bytes. It returns ErrWouldBlock when
// fewer than len(p) bytes are buffered and the peer may still write more;
// after the peer closes it returns whatever remains, then io.EOF.
func (e *PipeEnd) Peek(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.recv.data) >= len(p) {
		return copy(p, e.recv.data), nil
	}
	if !e.recv.closed {
		return 0, ErrWouldBlock
	}
	if len(e.recv.data) == 0 {
		return 0, io.EOF
	}
	return copy(p, e.recv.data), io.EOF
}

// Read consumes up to len(p) buffered bytes.
func (e *PipeEnd) Read(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.recv.data) == 0 {
		if e.recv.closed {
			return 0, io.EOF
		}
		return 0, ErrWouldBlock
	}

	n := copy(p, e.recv.data)
	e.recv.data = e.recv.data[n:]
	return n, nil
}

// Write buffers p for the peer.
func (e *PipeEnd) Write(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.send.closed {
		return 0, io.ErrClosedPipe
	}

	e.send.data = append(e.send.data, p...)
	return len(p), nil
}

// Flush is a no-op: pipe writes are immediately visible to the peer.
func (e *PipeEnd) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return io.ErrClosedPipe
	}
	return nil
}

// Close closes the send direction. The peer drains any buffered bytes and
// then observes end of stream; our own reads continue until the peer closes
// its side.
func (e *PipeEnd) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.send.closed = true
	return nil
}
