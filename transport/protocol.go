package transport

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/noisewire/limits"
	"github.com/opd-ai/noisewire/noise"
	"github.com/opd-ai/noisewire/packet"
)

// Protocol is an established noisewire connection: the transport-phase Noise
// state plus persistent scratch buffers, created by the handshake engines and
// living for the rest of the connection.
//
// The send and receive paths own independent scratch pairs, so one in-flight
// send and one in-flight receive may run concurrently against independent
// stream halves. Two concurrent operations in the same direction on the same
// Protocol are undefined.
type Protocol struct {
	connID string
	state  *noise.TransportState

	sendMsg []byte // plaintext scratch, send side
	sendBuf []byte // ciphertext scratch, send side
	recvMsg []byte // plaintext scratch, receive side
	recvBuf []byte // ciphertext scratch, receive side

	// Decode cursor: the unconsumed tail of the most recently decrypted
	// frame, as a range into recvMsg. Empty means the next receive reads a
	// new frame.
	curStart int
	curEnd   int

	log *logrus.Entry
}

func newProtocol(ts *noise.TransportState) *Protocol {
	id := uuid.New().String()
	return &Protocol{
		connID:  id,
		state:   ts,
		sendMsg: make([]byte, limits.MsgMaxLen),
		sendBuf: make([]byte, limits.NoiseMaxLen),
		recvMsg: make([]byte, limits.MsgMaxLen),
		recvBuf: make([]byte, limits.NoiseMaxLen),
		log:     logrus.WithField("conn_id", id),
	}
}

// ConnID returns the connection's log-correlation identifier.
func (p *Protocol) ConnID() string { return p.connID }

func (p *Protocol) cursorEmpty() bool { return p.curStart >= p.curEnd }

func (p *Protocol) cursor() []byte { return p.recvMsg[p.curStart:p.curEnd] }

func (p *Protocol) resetCursor() { p.curStart, p.curEnd = 0, 0 }

func (p *Protocol) advanceCursor(n int) {
	p.curStart += n
	if p.curStart >= p.curEnd {
		p.resetCursor()
	}
}

// refill reads and decrypts one frame into the decode cursor when it is
// empty. Shared by the receive-side operations.
type refill struct {
	proto *Protocol
	in    Reader
	read  *frameReader
}

func (f *refill) poll() (bool, error) {
	p := f.proto
	if f.read == nil {
		if !p.cursorEmpty() {
			return true, nil
		}
		f.read = newFrameReader(p.recvMsg, p.recvBuf, f.in, p.state)
	}

	done, err := f.read.poll()
	if !done {
		return false, nil
	}

	n := f.read.bytesDecrypted()
	p.recvMsg, p.recvBuf = f.read.finish()
	f.read = nil
	if err != nil {
		return true, err
	}

	p.curStart, p.curEnd = 0, n
	return true, nil
}

type protoStep uint8

const (
	stepStart protoStep = iota
	stepTransfer
	stepDone
)

// SendOp is a resumable packet send. Obtain one from (*Protocol).Send and
// Poll it to completion.
type SendOp struct {
	step  protoStep
	proto *Protocol
	pkt   packet.Packet
	out   Writer
	write *frameWriter
	n     int
}

// Send encodes pkt into the send scratch and writes it as one encrypted
// frame to out.
func (p *Protocol) Send(out Writer, pkt packet.Packet) *SendOp {
	return &SendOp{step: stepStart, proto: p, pkt: pkt, out: out}
}

// Poll advances the send: (false, nil) suspended, (true, nil) complete,
// (true, err) failed. I/O and Noise failures are terminal for the
// connection. Polling after completion panics.
func (s *SendOp) Poll() (bool, error) {
	for {
		switch s.step {
		case stepStart:
			p := s.proto
			p.sendMsg = growBuffer(p.sendMsg, limits.MsgMaxLen)

			n, err := s.pkt.Encode(p.sendMsg)
			if err != nil {
				s.step = stepDone
				return true, fmt.Errorf("failed to encode %s packet: %w", s.pkt.ID(), err)
			}

			s.write = newFrameWriter(p.sendMsg[:n], p.sendBuf, s.out, p.state)
			s.step = stepTransfer

		case stepTransfer:
			done, err := s.write.poll()
			if !done {
				return false, nil
			}

			s.n = s.write.bytesWritten()
			_, s.proto.sendBuf = s.write.finish()
			s.write = nil
			s.step = stepDone
			if err != nil {
				return true, err
			}

			s.proto.log.WithFields(logrus.Fields{
				"packet": s.pkt.ID().String(),
				"bytes":  s.n,
			}).Debug("Packet sent")
			return true, nil

		case stepDone:
			panic("transport: Poll on completed send")
		}
	}
}

// BytesWritten returns the frame length put on the wire, header included.
func (s *SendOp) BytesWritten() int { return s.n }

// RecvOp is a resumable receive of the next whole packet, decoded as its
// concrete type. Obtain one from (*Protocol).Recv.
type RecvOp struct {
	step   protoStep
	proto  *Protocol
	refill refill
	pkt    packet.Packet
}

// Recv receives the next packet from in, refilling the decode cursor from a
// new frame only when it is empty. Multiple packets batched in one frame are
// returned by consecutive receives without further I/O.
func (p *Protocol) Recv(in Reader) *RecvOp {
	return &RecvOp{step: stepStart, proto: p, refill: refill{proto: p, in: in}}
}

// Poll advances the receive; see (*SendOp).Poll for the contract. A decode
// failure resets the cursor, discarding the remainder of the frame.
func (r *RecvOp) Poll() (bool, error) {
	for {
		switch r.step {
		case stepStart:
			done, err := r.refill.poll()
			if !done {
				return false, nil
			}
			if err != nil {
				r.step = stepDone
				return true, err
			}
			r.step = stepTransfer

		case stepTransfer:
			p := r.proto
			pkt, n, err := packet.Decode(p.cursor())
			r.step = stepDone
			if err != nil {
				p.resetCursor()
				return true, err
			}
			p.advanceCursor(n)
			r.pkt = pkt

			p.log.WithFields(logrus.Fields{
				"packet": pkt.ID().String(),
				"bytes":  n,
			}).Debug("Packet received")
			return true, nil

		case stepDone:
			panic("transport: Poll on completed receive")
		}
	}
}

// Packet returns the received packet after a successful poll.
func (r *RecvOp) Packet() packet.Packet { return r.pkt }

// PeekOp is a resumable look-ahead at the pending packet's ID. Obtain one
// from (*Protocol).PeekPacketID.
type PeekOp struct {
	step   protoStep
	proto  *Protocol
	refill refill
	id     packet.ID
}

// PeekPacketID inspects the ID of the pending packet without consuming it,
// refilling the decode cursor from a new frame only when it is empty. The
// caller can then commit to a typed receive or a polymorphic one.
func (p *Protocol) PeekPacketID(in Reader) *PeekOp {
	return &PeekOp{step: stepStart, proto: p, refill: refill{proto: p, in: in}}
}

// Poll advances the peek; see (*SendOp).Poll for the contract. A decode
// failure resets the cursor, discarding the unreadable frame.
func (o *PeekOp) Poll() (bool, error) {
	for {
		switch o.step {
		case stepStart:
			done, err := o.refill.poll()
			if !done {
				return false, nil
			}
			if err != nil {
				o.step = stepDone
				return true, err
			}
			o.step = stepTransfer

		case stepTransfer:
			p := o.proto
			id, _, err := packet.DecodeID(p.cursor())
			o.step = stepDone
			if err != nil {
				p.resetCursor()
				return true, err
			}
			o.id = id
			return true, nil

		case stepDone:
			panic("transport: Poll on completed peek")
		}
	}
}

// ID returns the pending packet's ID after a successful poll. The cursor is
// not advanced; the packet remains pending.
func (o *PeekOp) ID() packet.ID { return o.id }

// TryRecvOp is a resumable receive of one specific packet type. Obtain one
// from TryRecv.
type TryRecvOp[T any, PT decodablePtr[T]] struct {
	step   protoStep
	proto  *Protocol
	refill refill
	pkt    T
}

// decodablePtr constrains PT to be a pointer to T implementing the packet
// decode surface.
type decodablePtr[T any] interface {
	*T
	packet.Decodable
}

// TryRecv receives the next packet if it is of type T. If the pending
// packet's ID does not match, the operation fails with
// packet.ErrWrongPacketID and the cursor is left untouched, so the packet
// can still be received through Recv or a differently typed TryRecv.
func TryRecv[T any, PT decodablePtr[T]](p *Protocol, in Reader) *TryRecvOp[T, PT] {
	return &TryRecvOp[T, PT]{step: stepStart, proto: p, refill: refill{proto: p, in: in}}
}

// Poll advances the receive; see (*SendOp).Poll for the contract. A decode
// failure (other than an ID mismatch) resets the cursor.
func (o *TryRecvOp[T, PT]) Poll() (bool, error) {
	for {
		switch o.step {
		case stepStart:
			done, err := o.refill.poll()
			if !done {
				return false, nil
			}
			if err != nil {
				o.step = stepDone
				return true, err
			}
			o.step = stepTransfer

		case stepTransfer:
			p := o.proto
			o.step = stepDone

			window := p.cursor()
			id, _, err := packet.DecodeID(window)
			if err != nil {
				p.resetCursor()
				return true, err
			}
			if want := PT(&o.pkt).ID(); id != want {
				return true, fmt.Errorf("%w: want %s, got %s", packet.ErrWrongPacketID, want, id)
			}

			n, err := PT(&o.pkt).Decode(window)
			if err != nil {
				p.resetCursor()
				return true, err
			}
			p.advanceCursor(n)

			p.log.WithFields(logrus.Fields{
				"packet": id.String(),
				"bytes":  n,
			}).Debug("Packet received")
			return true, nil

		case stepDone:
			panic("transport: Poll on completed receive")
		}
	}
}

// Packet returns the received packet after a successful poll.
func (o *TryRecvOp[T, PT]) Packet() T { return o.pkt }
