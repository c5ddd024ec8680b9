// Package crypto provides the identity primitives consumed by the noisewire
// packet layer: Ed25519 identity keypairs, detached signatures, and the
// fixed-size BLAKE2b content hash carried in Hello packets.
//
// The Noise handshake itself uses its own ephemeral keys and never touches
// these identities; identity binding happens at the packet layer.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
)

// PublicKeySize is the size of an Ed25519 public identity key in bytes.
const PublicKeySize = ed25519.PublicKeySize

// SeedSize is the size of the private key seed in bytes.
const SeedSize = ed25519.SeedSize

// PublicKey is a node's public identity key.
type PublicKey [PublicKeySize]byte

// KeyPair holds a node's long-term identity keys. The private part is the
// 32-byte Ed25519 seed, never the expanded 64-byte form.
type KeyPair struct {
	Public  PublicKey
	Private [SeedSize]byte
}

// GenerateKeyPair creates a fresh random identity keypair.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate identity keypair: %w", err)
	}

	kp := &KeyPair{}
	copy(kp.Public[:], pub)
	copy(kp.Private[:], priv.Seed())

	return kp, nil
}

// FromSeed derives the keypair for a 32-byte private key seed.
func FromSeed(seed [SeedSize]byte) (*KeyPair, error) {
	if isZero(seed[:]) {
		return nil, errors.New("all-zero private key seed")
	}

	priv := ed25519.NewKeyFromSeed(seed[:])

	kp := &KeyPair{Private: seed}
	copy(kp.Public[:], priv.Public().(ed25519.PublicKey))

	return kp, nil
}

func isZero(b []byte) bool {
	var acc byte
	for _, v := range b {
		acc |= v
	}
	return acc == 0
}

// ZeroBytes overwrites b with zeros. Use it to wipe key material that is no
// longer needed.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
