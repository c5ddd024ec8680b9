// Package limits provides centralized wire size limits for the noisewire protocol.
// This ensures consistent validation across the framing and packet layers.
package limits

import (
	"errors"
	"fmt"
)

const (
	// NoiseMaxLen is the Noise protocol limit for a single message (65535 bytes).
	// No frame, including its length header, may exceed this size.
	NoiseMaxLen = 65535

	// NoiseOverhead is the overhead added by Noise AEAD encryption.
	// This is the Poly1305 MAC tag appended to every transport message.
	NoiseOverhead = 16

	// FrameHeaderLen is the size of the length prefix preceding every frame.
	// The prefix is an unsigned 16-bit little-endian ciphertext length.
	FrameHeaderLen = 2

	// RawMaxLen is the maximum ciphertext length a frame may declare.
	// It is NoiseMaxLen minus the frame length header (65533 bytes).
	RawMaxLen = NoiseMaxLen - FrameHeaderLen

	// MsgMaxLen is the maximum plaintext payload per frame.
	// It is RawMaxLen minus the AEAD tag (65517 bytes).
	MsgMaxLen = RawMaxLen - NoiseOverhead

	// FrameOverhead is the total per-frame overhead on the wire:
	// length header plus AEAD tag.
	FrameOverhead = FrameHeaderLen + NoiseOverhead
)

var (
	// ErrMessageTooLarge indicates a plaintext payload exceeds MsgMaxLen.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrFrameTooLarge indicates a declared ciphertext length exceeds RawMaxLen.
	// A peer declaring such a length is misbehaving and the connection must be
	// abandoned.
	ErrFrameTooLarge = errors.New("frame too large")
)

// ValidateMessageSize validates a plaintext payload size against MsgMaxLen.
// Returns an error carrying both the limit and the offending size.
func ValidateMessageSize(size int) error {
	if size > MsgMaxLen {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrMessageTooLarge, size, MsgMaxLen)
	}
	return nil
}

// ValidateFrameSize validates a declared ciphertext length against RawMaxLen.
// Returns an error carrying both the limit and the offending size.
func ValidateFrameSize(size int) error {
	if size > RawMaxLen {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrFrameTooLarge, size, RawMaxLen)
	}
	return nil
}
