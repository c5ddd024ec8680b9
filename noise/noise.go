// Package noise adapts the flynn/noise engine to the uniform state interface
// the noisewire framing layer consumes.
//
// The handshake pattern is fixed at build time to NN: an anonymous,
// ephemeral-only key agreement. No static identity is exchanged at this
// layer; identity binding is deferred to the packet layer (Hello).
package noise

import (
	"errors"

	"github.com/flynn/noise"
)

// PatternName is the full Noise protocol name this package implements.
const PatternName = "Noise_NN_25519_ChaChaPoly_BLAKE2b"

// HandshakeMaxLen is the size of the larger of the two NN handshake messages.
// Message 1 is the initiator ephemeral (32 bytes); message 2 is the responder
// ephemeral plus an empty AEAD payload confirming the shared secret
// (32 + 16 bytes). Neither carries an application payload.
const HandshakeMaxLen = 48

var (
	// ErrHandshakeNotComplete indicates the handshake has not finished yet.
	ErrHandshakeNotComplete = errors.New("handshake not complete")
	// ErrHandshakeComplete indicates an operation on a handshake state that
	// was already consumed into transport mode.
	ErrHandshakeComplete = errors.New("handshake already complete")
	// ErrShortBuffer indicates an output buffer too small for the produced
	// message or payload.
	ErrShortBuffer = errors.New("output buffer too small")
)

// State is the uniform capability over handshake-phase and transport-phase
// cryptographic states. Every call mutates the underlying state; a State must
// never be shared between concurrent operations.
type State interface {
	// WriteMessage encrypts payload into out and returns the message length.
	WriteMessage(payload, out []byte) (int, error)

	// ReadMessage decrypts message into out and returns the payload length.
	// Decryption failure is terminal for the connection.
	ReadMessage(message, out []byte) (int, error)

	// Handshake reports whether this is a handshake-phase state.
	Handshake() bool
}

// cipherSuite returns the fixed suite matching PatternName.
func cipherSuite() noise.CipherSuite {
	return noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashBLAKE2b)
}
