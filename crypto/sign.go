package crypto

import (
	"crypto/ed25519"
	"errors"
)

// SignatureSize is the size of an Ed25519 signature in bytes.
const SignatureSize = ed25519.SignatureSize

// Signature is a detached Ed25519 signature.
type Signature [SignatureSize]byte

// Sign creates a signature over message using the keypair's private seed.
func Sign(message []byte, kp *KeyPair) (Signature, error) {
	if len(message) == 0 {
		return Signature{}, errors.New("empty message")
	}

	priv := ed25519.NewKeyFromSeed(kp.Private[:])

	var sig Signature
	copy(sig[:], ed25519.Sign(priv, message))

	return sig, nil
}

// Verify reports whether sig is a valid signature over message by the holder
// of publicKey.
func Verify(message []byte, sig Signature, publicKey PublicKey) bool {
	if len(message) == 0 {
		return false
	}
	return ed25519.Verify(publicKey[:], message, sig[:])
}
