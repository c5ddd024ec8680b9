package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/opd-ai/noisewire/limits"
)

func TestFrameRoundTrip(t *testing.T) {
	its, rts := transportPair(t)
	a, b := Pipe()

	payload := []byte("frame payload bytes")

	w := newFrameWriter(payload, make([]byte, limits.NoiseMaxLen), a, its)
	drive(t, pollerFunc(w.poll))
	if want := len(payload) + limits.FrameOverhead; w.bytesWritten() != want {
		t.Errorf("bytesWritten = %d, want %d", w.bytesWritten(), want)
	}

	r := newFrameReader(make([]byte, limits.MsgMaxLen), make([]byte, limits.NoiseMaxLen), b, rts)
	drive(t, pollerFunc(r.poll))

	msg, _ := r.finish()
	if !bytes.Equal(msg[:r.bytesDecrypted()], payload) {
		t.Error("decrypted payload does not match original")
	}
}

func TestFrameRoundTripChunked(t *testing.T) {
	its, rts := transportPair(t)
	a, b := Pipe()
	ca := &chunkedStream{inner: a}
	cb := &chunkedStream{inner: b}

	payload := bytes.Repeat([]byte{0xA5}, 300)

	w := newFrameWriter(payload, make([]byte, limits.NoiseMaxLen), ca, its)
	r := newFrameReader(make([]byte, limits.MsgMaxLen), make([]byte, limits.NoiseMaxLen), cb, rts)

	// Interleave the two machines the way a scheduler would; each poll makes
	// at most one byte of progress.
	wDone, rDone := false, false
	for i := 0; i < 100000 && !(wDone && rDone); i++ {
		if !wDone {
			done, err := w.poll()
			if err != nil {
				t.Fatalf("writer failed: %v", err)
			}
			wDone = done
		}
		if !rDone {
			done, err := r.poll()
			if err != nil {
				t.Fatalf("reader failed: %v", err)
			}
			rDone = done
		}
	}
	if !wDone || !rDone {
		t.Fatal("frame transfer did not complete")
	}

	msg, _ := r.finish()
	if !bytes.Equal(msg[:r.bytesDecrypted()], payload) {
		t.Error("decrypted payload does not match original")
	}
}

func TestFrameWriterRejectsOversizedBeforeIO(t *testing.T) {
	its, _ := transportPair(t)
	out := &errWriter{}

	oversized := make([]byte, limits.MsgMaxLen+1)
	w := newFrameWriter(oversized, nil, out, its)

	_, err := w.poll()
	if !errors.Is(err, limits.ErrMessageTooLarge) {
		t.Fatalf("expected ErrMessageTooLarge, got %v", err)
	}
	if out.calls != 0 {
		t.Errorf("writer touched the stream %d times before rejecting", out.calls)
	}
}

func TestFrameReaderRejectsOversizedDeclaredLength(t *testing.T) {
	_, rts := transportPair(t)
	a, b := Pipe()

	// Declared length 65534 exceeds RawMaxLen (65533).
	var hdr [2]byte
	binary.LittleEndian.PutUint16(hdr[:], uint16(limits.RawMaxLen+1))
	if _, err := a.Write(hdr[:]); err != nil {
		t.Fatal(err)
	}

	r := newFrameReader(make([]byte, limits.MsgMaxLen), make([]byte, limits.NoiseMaxLen), b, rts)
	err := driveErr(t, pollerFunc(r.poll))
	if !errors.Is(err, limits.ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}

	// The reader rejected at the peek: the header bytes were never consumed.
	peeked := make([]byte, 2)
	n, err := b.Peek(peeked)
	if err != nil || n != 2 || !bytes.Equal(peeked, hdr[:]) {
		t.Errorf("header was consumed past the peek: (%d, %v, %v)", n, err, peeked)
	}
}

func TestFrameReaderTruncatedHeader(t *testing.T) {
	_, rts := transportPair(t)
	a, b := Pipe()

	// One header byte, then the peer goes away.
	if _, err := a.Write([]byte{0x10}); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	r := newFrameReader(make([]byte, limits.MsgMaxLen), make([]byte, limits.NoiseMaxLen), b, rts)
	err := driveErr(t, pollerFunc(r.poll))
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestFrameReaderTruncatedBody(t *testing.T) {
	_, rts := transportPair(t)
	a, b := Pipe()

	// A frame declaring 32 bytes of ciphertext, but only 5 arrive.
	var hdr [2]byte
	binary.LittleEndian.PutUint16(hdr[:], 32)
	if _, err := a.Write(hdr[:]); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Write([]byte{1, 2, 3, 4, 5}); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	r := newFrameReader(make([]byte, limits.MsgMaxLen), make([]byte, limits.NoiseMaxLen), b, rts)
	err := driveErr(t, pollerFunc(r.poll))
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestFrameReaderAuthFailure(t *testing.T) {
	its, rts := transportPair(t)
	a, b := Pipe()

	w := newFrameWriter([]byte("payload"), make([]byte, limits.NoiseMaxLen), a, its)
	drive(t, pollerFunc(w.poll))

	// Corrupt one ciphertext byte in flight.
	a.mu.Lock()
	a.send.data[3] ^= 0x01
	a.mu.Unlock()

	r := newFrameReader(make([]byte, limits.MsgMaxLen), make([]byte, limits.NoiseMaxLen), b, rts)
	if err := driveErr(t, pollerFunc(r.poll)); err == nil {
		t.Fatal("tampered frame decrypted without error")
	}
}

func TestFrameReaderShortPlaintextBuffer(t *testing.T) {
	its, rts := transportPair(t)
	a, b := Pipe()

	payload := bytes.Repeat([]byte{0x7F}, 64)
	w := newFrameWriter(payload, make([]byte, limits.NoiseMaxLen), a, its)
	drive(t, pollerFunc(w.poll))

	// Transport-phase reads validate the plaintext scratch instead of
	// growing it.
	r := newFrameReader(make([]byte, 8), make([]byte, limits.NoiseMaxLen), b, rts)
	err := driveErr(t, pollerFunc(r.poll))
	if !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("expected ErrShortBuffer, got %v", err)
	}
}

func TestGrowBuffer(t *testing.T) {
	b := make([]byte, 4, 16)
	copy(b, "abcd")

	g := growBuffer(b, 8)
	if len(g) != 8 || &g[0] != &b[0] {
		t.Error("grow within capacity should reslice in place")
	}

	g2 := growBuffer(g, 32)
	if len(g2) != 32 || string(g2[:4]) != "abcd" {
		t.Error("grow beyond capacity should reallocate and preserve contents")
	}

	if got := growBuffer(g2, 8); len(got) != 32 {
		t.Error("buffers must never shrink")
	}
}

// pollerFunc adapts the internal machines' lowercase poll to the test
// driver.
type pollerFunc func() (bool, error)

func (f pollerFunc) Poll() (bool, error) { return f() }
