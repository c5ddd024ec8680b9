package noise

import (
	"fmt"

	"github.com/flynn/noise"

	"github.com/opd-ai/noisewire/limits"
)

// TransportState is the transport-phase Noise state for one connection:
// a send cipher and a receive cipher split from the completed handshake.
// Encryption and decryption mutate the nonce counters, so a TransportState
// must not be shared between concurrent operations in the same direction.
type TransportState struct {
	send *noise.CipherState
	recv *noise.CipherState
}

// Handshake reports false: this is a transport-phase state.
func (t *TransportState) Handshake() bool { return false }

// WriteMessage encrypts payload into out and returns the ciphertext length
// (payload length plus the AEAD tag). out must have room for the result; the
// framing layer guarantees this by growing its scratch buffer first, which
// also keeps the encryption allocation-free.
func (t *TransportState) WriteMessage(payload, out []byte) (int, error) {
	need := len(payload) + limits.NoiseOverhead
	if need > len(out) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, need, len(out))
	}

	res, err := t.send.Encrypt(out[:0], nil, payload)
	if err != nil {
		return 0, fmt.Errorf("transport encrypt failed: %w", err)
	}

	return len(res), nil
}

// ReadMessage authenticates and decrypts message into out and returns the
// plaintext length. Authentication failure is terminal: the cipher state is
// no longer usable and the connection must be abandoned.
func (t *TransportState) ReadMessage(message, out []byte) (int, error) {
	if len(message) >= limits.NoiseOverhead {
		if need := len(message) - limits.NoiseOverhead; need > len(out) {
			return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, need, len(out))
		}
	}

	res, err := t.recv.Decrypt(out[:0], nil, message)
	if err != nil {
		return 0, fmt.Errorf("transport decrypt failed: %w", err)
	}

	return len(res), nil
}
