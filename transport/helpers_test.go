package transport

import (
	"errors"
	"testing"

	"github.com/opd-ai/noisewire/noise"
)

// poller is any resumable operation in this package.
type poller interface {
	Poll() (bool, error)
}

// maxPolls bounds scheduler loops in tests; every operation over a pipe pair
// finishes in far fewer resumptions.
const maxPolls = 10000

// drive polls op to completion.
func drive(t *testing.T, op poller) {
	t.Helper()
	for i := 0; i < maxPolls; i++ {
		done, err := op.Poll()
		if err != nil {
			t.Fatalf("operation failed: %v", err)
		}
		if done {
			return
		}
	}
	t.Fatal("operation did not complete")
}

// driveErr polls op until it fails and returns the error.
func driveErr(t *testing.T, op poller) error {
	t.Helper()
	for i := 0; i < maxPolls; i++ {
		done, err := op.Poll()
		if err != nil {
			return err
		}
		if done {
			t.Fatal("operation completed, expected failure")
		}
	}
	t.Fatal("operation did not finish")
	return nil
}

// establish runs both handshake engines over an in-memory pipe pair with a
// cooperative scheduler loop and returns the resulting Protocol instances
// alongside their stream ends.
func establish(t *testing.T) (*Protocol, *Protocol, *PipeEnd, *PipeEnd) {
	t.Helper()

	a, b := Pipe()

	ini, err := InitiateStream(a)
	if err != nil {
		t.Fatalf("failed to create initiator: %v", err)
	}
	resp, err := RespondStream(b)
	if err != nil {
		t.Fatalf("failed to create responder: %v", err)
	}

	iniDone, respDone := false, false
	for i := 0; i < maxPolls && !(iniDone && respDone); i++ {
		if !iniDone {
			done, err := ini.Poll()
			if err != nil {
				t.Fatalf("initiator failed: %v", err)
			}
			iniDone = done
		}
		if !respDone {
			done, err := resp.Poll()
			if err != nil {
				t.Fatalf("responder failed: %v", err)
			}
			respDone = done
		}
	}
	if !iniDone || !respDone {
		t.Fatal("handshake did not complete")
	}

	pa, err := ini.Done()
	if err != nil {
		t.Fatalf("initiator Done failed: %v", err)
	}
	pb, err := resp.Done()
	if err != nil {
		t.Fatalf("responder Done failed: %v", err)
	}

	return pa, pb, a, b
}

// transportPair derives a paired set of transport states by exchanging the
// NN messages directly, for tests that exercise the frame machines without
// the engines.
func transportPair(t *testing.T) (*noise.TransportState, *noise.TransportState) {
	t.Helper()

	ini, err := noise.NewHandshake(noise.Initiator)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := noise.NewHandshake(noise.Responder)
	if err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, noise.HandshakeMaxLen)
	scratch := make([]byte, noise.HandshakeMaxLen)

	n, err := ini.WriteMessage(nil, buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := resp.ReadMessage(buf[:n], scratch); err != nil {
		t.Fatal(err)
	}
	n, err = resp.WriteMessage(nil, buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ini.ReadMessage(buf[:n], scratch); err != nil {
		t.Fatal(err)
	}

	its, err := ini.IntoTransport()
	if err != nil {
		t.Fatal(err)
	}
	rts, err := resp.IntoTransport()
	if err != nil {
		t.Fatal(err)
	}

	return its, rts
}

// chunkedStream wraps a Stream, capping each read and write at one byte and
// interleaving would-block results, to exercise suspension and partial
// transfer handling.
type chunkedStream struct {
	inner Stream
	tick  int
}

func (c *chunkedStream) stall() bool {
	c.tick++
	return c.tick%2 == 0
}

func (c *chunkedStream) Peek(p []byte) (int, error) {
	if c.stall() {
		return 0, ErrWouldBlock
	}
	return c.inner.Peek(p)
}

func (c *chunkedStream) Read(p []byte) (int, error) {
	if c.stall() {
		return 0, ErrWouldBlock
	}
	if len(p) > 1 {
		p = p[:1]
	}
	return c.inner.Read(p)
}

func (c *chunkedStream) Write(p []byte) (int, error) {
	if c.stall() {
		return 0, ErrWouldBlock
	}
	if len(p) > 1 {
		p = p[:1]
	}
	return c.inner.Write(p)
}

func (c *chunkedStream) Flush() error {
	if c.stall() {
		return ErrWouldBlock
	}
	return c.inner.Flush()
}

// errWriter fails every write, for verifying that validation happens before
// any I/O.
type errWriter struct{ calls int }

var errBoom = errors.New("boom")

func (w *errWriter) Write(p []byte) (int, error) {
	w.calls++
	return 0, errBoom
}

func (w *errWriter) Flush() error {
	w.calls++
	return errBoom
}
