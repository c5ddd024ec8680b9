package packet

import (
	"fmt"

	"github.com/opd-ai/noisewire/crypto"
)

// HelloLen is the encoded size of a Hello packet:
// header (4) + public key (32) + root hash (32) + signature (64).
const HelloLen = headerLen + crypto.PublicKeySize + RootLen

// RootLen is the encoded size of a Root: hash (32) + signature (64).
const RootLen = crypto.HashSize + crypto.SignatureSize

// Root binds a content hash to a node identity via a detached signature over
// the hash bytes.
type Root struct {
	Hash crypto.Hash
	Sig  crypto.Signature
}

// Hello announces a node's public identity key together with the root it
// currently vouches for. The transport does not authenticate identities
// during the handshake; receivers validate a Hello with Verify.
type Hello struct {
	NodeID crypto.PublicKey
	Root   Root
}

// NewHello builds a Hello for the given keypair, signing the root hash.
func NewHello(kp *crypto.KeyPair, hash crypto.Hash) (*Hello, error) {
	sig, err := crypto.Sign(hash[:], kp)
	if err != nil {
		return nil, fmt.Errorf("failed to sign root hash: %w", err)
	}

	return &Hello{
		NodeID: kp.Public,
		Root:   Root{Hash: hash, Sig: sig},
	}, nil
}

// ID returns IDHello.
func (Hello) ID() ID { return IDHello }

// Encode writes the packet into buf.
func (h Hello) Encode(buf []byte) (int, error) {
	if len(buf) < HelloLen {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, HelloLen, len(buf))
	}

	offset, err := encodeHeader(IDHello, buf)
	if err != nil {
		return 0, err
	}

	offset += copy(buf[offset:], h.NodeID[:])

	n, err := h.Root.encode(buf[offset:])
	if err != nil {
		return 0, err
	}
	offset += n

	return offset, nil
}

// Decode reads the packet from buf, validating the ID tag first.
func (h *Hello) Decode(buf []byte) (int, error) {
	offset, err := decodeHeader(IDHello, buf)
	if err != nil {
		return 0, err
	}

	if len(buf) < HelloLen {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, HelloLen, len(buf))
	}

	offset += copy(h.NodeID[:], buf[offset:offset+crypto.PublicKeySize])

	n, err := h.Root.decode(buf[offset:])
	if err != nil {
		return 0, err
	}
	offset += n

	return offset, nil
}

// Verify checks that the root signature was produced by the announced node
// identity over the root hash. Returns ErrSignature on mismatch.
func (h *Hello) Verify() error {
	return h.Root.VerifyFor(h.NodeID)
}

// VerifyFor checks the root signature against an explicit identity key.
func (r *Root) VerifyFor(id crypto.PublicKey) error {
	if !crypto.Verify(r.Hash[:], r.Sig, id) {
		return ErrSignature
	}
	return nil
}

func (r Root) encode(buf []byte) (int, error) {
	if len(buf) < RootLen {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, RootLen, len(buf))
	}

	offset := copy(buf, r.Hash[:])
	offset += copy(buf[offset:], r.Sig[:])

	return offset, nil
}

func (r *Root) decode(buf []byte) (int, error) {
	if len(buf) < RootLen {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, RootLen, len(buf))
	}

	offset := copy(r.Hash[:], buf[:crypto.HashSize])
	offset += copy(r.Sig[:], buf[offset:offset+crypto.SignatureSize])

	return offset, nil
}
