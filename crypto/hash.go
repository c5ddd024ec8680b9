package crypto

import (
	"golang.org/x/crypto/blake2b"
)

// HashSize is the size of a content hash in bytes.
const HashSize = blake2b.Size256

// Hash is a fixed-size BLAKE2b-256 digest. Hello packets carry one as the
// root hash a node vouches for.
type Hash [HashSize]byte

// HashData computes the BLAKE2b-256 digest of data.
func HashData(data []byte) Hash {
	return blake2b.Sum256(data)
}
