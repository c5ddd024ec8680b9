// Package packet defines the typed packets multiplexed over a noisewire
// connection and their binary codec.
//
// Every packet starts with a 2-byte little-endian packet ID followed by
// 2 reserved bytes (zero on encode, ignored on decode), then the packet's
// fixed-width fields in declaration order.
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ID identifies the type of a packet on the wire.
type ID uint16

const (
	// IDHeartbeat is a keepalive carrying no payload.
	IDHeartbeat ID = 0
	// IDHello announces a node's identity and its signed root hash.
	IDHello ID = 1
)

// IDLen is the encoded size of a packet ID.
const IDLen = 2

// reservedLen is the number of reserved bytes following the packet ID.
const reservedLen = 2

// headerLen is the encoded size of the common packet header.
const headerLen = IDLen + reservedLen

var (
	// ErrShortBuffer indicates a buffer smaller than a packet's required size.
	ErrShortBuffer = errors.New("buffer too small")
	// ErrUnknownPacketID indicates a packet ID this implementation does not know.
	ErrUnknownPacketID = errors.New("unknown packet id")
	// ErrWrongPacketID indicates a decode of a concrete type against a
	// different packet's bytes.
	ErrWrongPacketID = errors.New("wrong packet id")
	// ErrSignature indicates a failed identity signature check.
	ErrSignature = errors.New("signature verification failed")
)

// Packet is a typed unit of application data carried in one or more frames.
type Packet interface {
	// ID returns the packet's wire identity tag.
	ID() ID
	// Encode writes the packet into buf and returns the number of bytes
	// written. It fails with ErrShortBuffer if buf cannot hold the packet.
	Encode(buf []byte) (int, error)
}

// Decodable is a Packet that can decode itself from a byte buffer. Decode
// validates the leading ID tag first and returns the number of bytes
// consumed.
type Decodable interface {
	Packet
	Decode(buf []byte) (int, error)
}

// String returns a human-readable name for the ID.
func (id ID) String() string {
	switch id {
	case IDHeartbeat:
		return "heartbeat"
	case IDHello:
		return "hello"
	default:
		return fmt.Sprintf("unknown(%d)", uint16(id))
	}
}

// DecodeID decodes the leading packet ID from buf without consuming anything
// past it. It fails with ErrShortBuffer on truncated input and
// ErrUnknownPacketID on an unrecognized tag.
func DecodeID(buf []byte) (ID, int, error) {
	if len(buf) < IDLen {
		return 0, 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, IDLen, len(buf))
	}

	id := ID(binary.LittleEndian.Uint16(buf))
	switch id {
	case IDHeartbeat, IDHello:
		return id, IDLen, nil
	default:
		return 0, 0, fmt.Errorf("%w: %d", ErrUnknownPacketID, uint16(id))
	}
}

// Decode decodes the next whole packet from buf as its concrete type,
// returning the packet and the number of bytes consumed.
func Decode(buf []byte) (Packet, int, error) {
	id, _, err := DecodeID(buf)
	if err != nil {
		return nil, 0, err
	}

	switch id {
	case IDHeartbeat:
		var p Heartbeat
		n, err := p.Decode(buf)
		if err != nil {
			return nil, 0, err
		}
		return &p, n, nil
	case IDHello:
		var p Hello
		n, err := p.Decode(buf)
		if err != nil {
			return nil, 0, err
		}
		return &p, n, nil
	default:
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownPacketID, uint16(id))
	}
}

// encodeHeader writes the common ID + reserved header into buf.
func encodeHeader(id ID, buf []byte) (int, error) {
	if len(buf) < headerLen {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, headerLen, len(buf))
	}

	binary.LittleEndian.PutUint16(buf, uint16(id))
	buf[2] = 0
	buf[3] = 0

	return headerLen, nil
}

// decodeHeader validates the common header against the expected ID and
// returns the number of bytes consumed. The reserved bytes are skipped
// without validation.
func decodeHeader(want ID, buf []byte) (int, error) {
	if len(buf) < headerLen {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, headerLen, len(buf))
	}

	got := ID(binary.LittleEndian.Uint16(buf))
	if got != want {
		return 0, fmt.Errorf("%w: want %s, got %s", ErrWrongPacketID, want, got)
	}

	return headerLen, nil
}
