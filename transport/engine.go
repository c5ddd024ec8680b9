package transport

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/noisewire/limits"
	"github.com/opd-ai/noisewire/noise"
)

// handshakeBufLen sizes the ciphertext scratch for handshake frames: the
// length header plus the larger of the two NN messages.
const handshakeBufLen = limits.FrameHeaderLen + noise.HandshakeMaxLen

type engineStep uint8

const (
	engineStepWrite engineStep = iota
	engineStepFlush
	engineStepRead
	engineStepDone
	engineStepFailed
	engineStepConsumed
)

// Initiator drives the initiating side of the handshake:
// write frame, flush, read reply, done. Poll it until completion, then call
// Done exactly once to obtain the Protocol.
type Initiator struct {
	step  engineStep
	in    Reader
	out   Writer
	hs    *noise.HandshakeState
	write *frameWriter
	read  *frameReader
	buf   []byte
	log   *logrus.Entry
}

// Initiate starts a handshake over a split input/output handle pair. This is
// the general configuration; InitiateStream covers the single-handle case.
func Initiate(in Reader, out Writer) (*Initiator, error) {
	hs, err := noise.NewHandshake(noise.Initiator)
	if err != nil {
		return nil, err
	}

	i := &Initiator{
		step: engineStepWrite,
		in:   in,
		out:  out,
		hs:   hs,
		log: logrus.WithFields(logrus.Fields{
			"role":    "initiator",
			"pattern": noise.PatternName,
		}),
	}
	i.write = newFrameWriter(nil, make([]byte, handshakeBufLen), out, hs)

	i.log.Debug("Starting handshake")
	return i, nil
}

// InitiateStream starts a handshake using one duplex handle for both
// directions.
func InitiateStream(s Stream) (*Initiator, error) {
	return Initiate(s, s)
}

// Poll advances the handshake: (false, nil) suspended, (true, nil) complete,
// (true, err) failed. A failed handshake cannot be resumed; its partial
// cryptographic state is discarded and a fresh handshake must be started.
// Polling after completion or failure is a programming error and panics.
func (i *Initiator) Poll() (bool, error) {
	for {
		switch i.step {
		case engineStepWrite:
			done, err := i.write.poll()
			if err != nil {
				i.step = engineStepFailed
				return true, err
			}
			if !done {
				return false, nil
			}
			_, i.buf = i.write.finish()
			i.write = nil
			i.step = engineStepFlush

		case engineStepFlush:
			err := i.out.Flush()
			if errors.Is(err, ErrWouldBlock) {
				return false, nil
			}
			if err != nil {
				i.step = engineStepFailed
				return true, fmt.Errorf("handshake flush failed: %w", err)
			}
			i.read = newFrameReader(nil, i.buf, i.in, i.hs)
			i.step = engineStepRead

		case engineStepRead:
			done, err := i.read.poll()
			if err != nil {
				i.step = engineStepFailed
				return true, err
			}
			if !done {
				return false, nil
			}
			i.read = nil
			i.step = engineStepDone
			i.log.Debug("Handshake complete")
			return true, nil

		default:
			panic("transport: Poll on finished handshake")
		}
	}
}

// Done consumes the completed handshake and returns the Protocol for the
// connection. It fails with noise.ErrHandshakeNotComplete before completion
// and with noise.ErrHandshakeComplete if called twice.
func (i *Initiator) Done() (*Protocol, error) {
	return engineDone(&i.step, i.hs, i.log)
}

// Responder drives the responding side of the handshake:
// read frame, write reply, flush, done.
type Responder struct {
	step  engineStep
	in    Reader
	out   Writer
	hs    *noise.HandshakeState
	write *frameWriter
	read  *frameReader
	buf   []byte
	log   *logrus.Entry
}

// Respond starts the responding side over a split input/output handle pair.
func Respond(in Reader, out Writer) (*Responder, error) {
	hs, err := noise.NewHandshake(noise.Responder)
	if err != nil {
		return nil, err
	}

	r := &Responder{
		step: engineStepRead,
		in:   in,
		out:  out,
		hs:   hs,
		log: logrus.WithFields(logrus.Fields{
			"role":    "responder",
			"pattern": noise.PatternName,
		}),
	}
	r.read = newFrameReader(nil, make([]byte, handshakeBufLen), in, hs)

	r.log.Debug("Awaiting handshake")
	return r, nil
}

// RespondStream starts the responding side using one duplex handle for both
// directions.
func RespondStream(s Stream) (*Responder, error) {
	return Respond(s, s)
}

// Poll advances the handshake; see (*Initiator).Poll for the contract.
func (r *Responder) Poll() (bool, error) {
	for {
		switch r.step {
		case engineStepRead:
			done, err := r.read.poll()
			if err != nil {
				r.step = engineStepFailed
				return true, err
			}
			if !done {
				return false, nil
			}
			_, r.buf = r.read.finish()
			r.read = nil
			r.write = newFrameWriter(nil, r.buf, r.out, r.hs)
			r.step = engineStepWrite

		case engineStepWrite:
			done, err := r.write.poll()
			if err != nil {
				r.step = engineStepFailed
				return true, err
			}
			if !done {
				return false, nil
			}
			r.write = nil
			r.step = engineStepFlush

		case engineStepFlush:
			err := r.out.Flush()
			if errors.Is(err, ErrWouldBlock) {
				return false, nil
			}
			if err != nil {
				r.step = engineStepFailed
				return true, fmt.Errorf("handshake flush failed: %w", err)
			}
			r.step = engineStepDone
			r.log.Debug("Handshake complete")
			return true, nil

		default:
			panic("transport: Poll on finished handshake")
		}
	}
}

// Done consumes the completed handshake; see (*Initiator).Done.
func (r *Responder) Done() (*Protocol, error) {
	return engineDone(&r.step, r.hs, r.log)
}

func engineDone(step *engineStep, hs *noise.HandshakeState, log *logrus.Entry) (*Protocol, error) {
	switch *step {
	case engineStepDone:
	case engineStepConsumed:
		return nil, noise.ErrHandshakeComplete
	default:
		return nil, noise.ErrHandshakeNotComplete
	}

	ts, err := hs.IntoTransport()
	if err != nil {
		return nil, err
	}
	*step = engineStepConsumed

	p := newProtocol(ts)
	log.WithField("conn_id", p.ConnID()).Info("Secure channel established")
	return p, nil
}
