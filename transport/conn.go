package transport

import (
	"bufio"
	"net"
)

// StreamConn adapts a blocking net.Conn to the Stream interface. Peek is
// served by an internal bufio.Reader and writes are buffered until Flush.
//
// A StreamConn never returns ErrWouldBlock: its primitives block until they
// can make progress, so operations driven against one complete in a bounded
// number of polls. Schedule them on a goroutine per connection, the way the
// stdlib networking model expects.
type StreamConn struct {
	conn net.Conn
	br   *bufio.Reader
	bw   *bufio.Writer
}

// NewStreamConn wraps c. The caller retains responsibility for deadlines and
// for closing c; Close here only forwards.
func NewStreamConn(c net.Conn) *StreamConn {
	return &StreamConn{
		conn: c,
		br:   bufio.NewReader(c),
		bw:   bufio.NewWriter(c),
	}
}

// Peek fills p without consuming stream bytes, blocking until len(p) bytes
// are buffered or the stream ends.
func (s *StreamConn) Peek(p []byte) (int, error) {
	b, err := s.br.Peek(len(p))
	n := copy(p, b)
	if n == len(p) {
		return n, nil
	}
	return n, err
}

// Read consumes up to len(p) bytes.
func (s *StreamConn) Read(p []byte) (int, error) {
	return s.br.Read(p)
}

// Write buffers p for the connection.
func (s *StreamConn) Write(p []byte) (int, error) {
	return s.bw.Write(p)
}

// Flush pushes buffered writes to the connection.
func (s *StreamConn) Flush() error {
	return s.bw.Flush()
}

// Close closes the underlying connection.
func (s *StreamConn) Close() error {
	return s.conn.Close()
}
