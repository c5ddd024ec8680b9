package transport

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/opd-ai/noisewire/limits"
	"github.com/opd-ai/noisewire/noise"
)

type frameWriterStep uint8

const (
	writeStepPrepare frameWriterStep = iota
	writeStepDrain
	writeStepDone
)

// frameWriter encrypts one plaintext payload with the given Noise state and
// writes it as a single length-prefixed frame. It suspends only at the
// underlying write; partial writes are retried across resumptions until the
// whole frame is on the wire.
type frameWriter struct {
	step frameWriterStep
	n    int // total frame length, header included
	off  int
	msg  []byte // plaintext payload
	buf  []byte // ciphertext scratch
	out  Writer
	st   noise.State
}

func newFrameWriter(msg, buf []byte, out Writer, st noise.State) *frameWriter {
	return &frameWriter{step: writeStepPrepare, msg: msg, buf: buf, out: out, st: st}
}

// poll advances the frame write: (false, nil) suspended, (true, nil)
// complete, (true, err) failed. Any error is terminal for the frame.
func (w *frameWriter) poll() (bool, error) {
	for {
		switch w.step {
		case writeStepPrepare:
			if err := limits.ValidateMessageSize(len(w.msg)); err != nil {
				w.step = writeStepDone
				return true, err
			}

			w.buf = growBuffer(w.buf, len(w.msg)+limits.FrameOverhead)

			n, err := w.st.WriteMessage(w.msg, w.buf[limits.FrameHeaderLen:])
			if err != nil {
				w.step = writeStepDone
				return true, err
			}
			binary.LittleEndian.PutUint16(w.buf, uint16(n))

			w.n = n + limits.FrameHeaderLen
			w.off = 0
			w.step = writeStepDrain

		case writeStepDrain:
			if w.off >= w.n {
				w.step = writeStepDone
				return true, nil
			}

			n, err := w.out.Write(w.buf[w.off:w.n])
			w.off += n
			if errors.Is(err, ErrWouldBlock) {
				return false, nil
			}
			if err != nil {
				w.step = writeStepDone
				return true, fmt.Errorf("frame write failed: %w", err)
			}

		case writeStepDone:
			panic("transport: poll on completed frame write")
		}
	}
}

// bytesWritten returns the total frame length after a successful poll.
func (w *frameWriter) bytesWritten() int { return w.n }

// finish hands the scratch buffers back to the owner. Valid in any state.
func (w *frameWriter) finish() (msg, buf []byte) { return w.msg, w.buf }
