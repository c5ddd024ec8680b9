package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/opd-ai/noisewire/limits"
	"github.com/opd-ai/noisewire/noise"
)

type frameReaderStep uint8

const (
	readStepPeek frameReaderStep = iota
	readStepHeader
	readStepBody
	readStepDone
)

// frameReader reads one length-prefixed frame and decrypts it with the given
// Noise state. The length header is first inspected non-destructively so the
// scratch buffers can be grown before any stream byte is consumed; it
// suspends at the peek and at each partial read.
type frameReader struct {
	step     frameReaderStep
	declared int // ciphertext length from the header
	off      int
	n        int    // decrypted payload length
	msg      []byte // plaintext scratch
	buf      []byte // ciphertext scratch
	in       Reader
	st       noise.State
}

func newFrameReader(msg, buf []byte, in Reader, st noise.State) *frameReader {
	return &frameReader{
		step: readStepPeek,
		msg:  msg,
		buf:  growBuffer(buf, limits.FrameHeaderLen),
		in:   in,
		st:   st,
	}
}

// poll advances the frame read: (false, nil) suspended, (true, nil)
// complete, (true, err) failed. Any error is terminal for the connection.
func (r *frameReader) poll() (bool, error) {
	for {
		switch r.step {
		case readStepPeek:
			n, err := r.in.Peek(r.buf[:limits.FrameHeaderLen])
			if errors.Is(err, ErrWouldBlock) {
				return false, nil
			}
			if n < limits.FrameHeaderLen {
				r.step = readStepDone
				if err != nil && !errors.Is(err, io.EOF) {
					return true, fmt.Errorf("frame peek failed: %w", err)
				}
				return true, fmt.Errorf("%w: peeked %d of %d header bytes", ErrTruncated, n, limits.FrameHeaderLen)
			}

			declared := int(binary.LittleEndian.Uint16(r.buf))
			if err := limits.ValidateFrameSize(declared); err != nil {
				r.step = readStepDone
				return true, err
			}

			need := declared - limits.NoiseOverhead
			if need < 0 {
				need = 0
			}
			if r.st.Handshake() {
				// NN handshake messages carry no application payload, so
				// growing the plaintext scratch here can never truncate
				// data. A pattern with handshake payloads would need the
				// capacity validation below instead.
				r.msg = growBuffer(r.msg, need)
			} else if need > len(r.msg) {
				r.step = readStepDone
				return true, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, need, len(r.msg))
			}
			if declared > limits.FrameHeaderLen {
				r.buf = growBuffer(r.buf, declared)
			}

			r.declared = declared
			r.off = 0
			r.step = readStepHeader

		case readStepHeader:
			if r.off >= limits.FrameHeaderLen {
				r.off = 0
				r.step = readStepBody
				continue
			}
			done, err := r.fill(limits.FrameHeaderLen)
			if !done || err != nil {
				return done, err
			}

		case readStepBody:
			if r.off >= r.declared {
				n, err := r.st.ReadMessage(r.buf[:r.declared], r.msg)
				r.step = readStepDone
				if err != nil {
					return true, err
				}
				r.n = n
				return true, nil
			}
			done, err := r.fill(r.declared)
			if !done || err != nil {
				return done, err
			}

		case readStepDone:
			panic("transport: poll on completed frame read")
		}
	}
}

// fill consumes stream bytes into buf up to limit. It reports (true, nil)
// when progress was made, (false, nil) on suspension, and a terminal error
// when the stream fails or ends early.
func (r *frameReader) fill(limit int) (bool, error) {
	n, err := r.in.Read(r.buf[r.off:limit])
	r.off += n
	if r.off >= limit {
		return true, nil
	}
	if errors.Is(err, ErrWouldBlock) {
		return false, nil
	}
	if err != nil {
		r.step = readStepDone
		if errors.Is(err, io.EOF) {
			return true, fmt.Errorf("%w: stream closed with %d of %d frame bytes", ErrTruncated, r.off, limit)
		}
		return true, fmt.Errorf("frame read failed: %w", err)
	}
	return true, nil
}

// bytesDecrypted returns the plaintext length after a successful poll.
func (r *frameReader) bytesDecrypted() int { return r.n }

// finish hands the scratch buffers back to the owner. Valid in any state.
func (r *frameReader) finish() (msg, buf []byte) { return r.msg, r.buf }
