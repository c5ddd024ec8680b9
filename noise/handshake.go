package noise

import (
	"crypto/rand"
	"fmt"

	"github.com/flynn/noise"
)

// Role defines whether we initiate or respond to a handshake.
type Role uint8

const (
	// Initiator sends the first handshake message.
	Initiator Role = iota
	// Responder waits for the first message and replies.
	Responder
)

// HandshakeState is the handshake-phase Noise state for one connection.
// It is exclusively owned by the handshake engine driving it and is consumed
// exactly once by IntoTransport when the exchange completes.
type HandshakeState struct {
	role     Role
	hs       *noise.HandshakeState
	cs1      *noise.CipherState // initiator-to-responder cipher
	cs2      *noise.CipherState // responder-to-initiator cipher
	promoted bool
}

// NewHandshake creates the handshake-phase state for the fixed NN pattern.
func NewHandshake(role Role) (*HandshakeState, error) {
	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite: cipherSuite(),
		Random:      rand.Reader,
		Pattern:     noise.HandshakeNN,
		Initiator:   role == Initiator,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create handshake state: %w", err)
	}

	return &HandshakeState{role: role, hs: hs}, nil
}

// Role returns the side of the handshake this state plays.
func (h *HandshakeState) Role() Role { return h.role }

// Handshake reports true: this is a handshake-phase state.
func (h *HandshakeState) Handshake() bool { return true }

// Complete reports whether both cipher states have been derived and the
// state is ready for IntoTransport.
func (h *HandshakeState) Complete() bool { return h.cs1 != nil && h.cs2 != nil }

// WriteMessage produces the next handshake message into out, including
// payload if the pattern allows one at this step, and returns its length.
func (h *HandshakeState) WriteMessage(payload, out []byte) (int, error) {
	if h.promoted {
		return 0, ErrHandshakeComplete
	}

	msg, cs1, cs2, err := h.hs.WriteMessage(nil, payload)
	if err != nil {
		return 0, fmt.Errorf("handshake write failed: %w", err)
	}
	if cs1 != nil {
		h.cs1, h.cs2 = cs1, cs2
	}

	if len(msg) > len(out) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, len(msg), len(out))
	}

	return copy(out, msg), nil
}

// ReadMessage processes a received handshake message, writing any payload
// into out, and returns the payload length.
func (h *HandshakeState) ReadMessage(message, out []byte) (int, error) {
	if h.promoted {
		return 0, ErrHandshakeComplete
	}

	payload, cs1, cs2, err := h.hs.ReadMessage(nil, message)
	if err != nil {
		return 0, fmt.Errorf("handshake read failed: %w", err)
	}
	if cs1 != nil {
		h.cs1, h.cs2 = cs1, cs2
	}

	if len(payload) > len(out) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, len(payload), len(out))
	}

	return copy(out, payload), nil
}

// IntoTransport consumes the completed handshake state and returns the
// transport-phase state. The conversion is one-way; any further call on the
// handshake state fails with ErrHandshakeComplete.
//
// flynn/noise hands back the cipher pair in initiator-to-responder order from
// both final-message calls, so the send/receive assignment depends on our
// role rather than on which side derived the pair.
func (h *HandshakeState) IntoTransport() (*TransportState, error) {
	if h.promoted {
		return nil, ErrHandshakeComplete
	}
	if !h.Complete() {
		return nil, ErrHandshakeNotComplete
	}

	h.promoted = true

	if h.role == Initiator {
		return &TransportState{send: h.cs1, recv: h.cs2}, nil
	}
	return &TransportState{send: h.cs2, recv: h.cs1}, nil
}
