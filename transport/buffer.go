package transport

// growBuffer returns a slice of length at least n, preserving b's contents.
// Scratch buffers only ever grow; they are never shrunk, so the largest
// frame seen so far sets the allocation for the rest of the connection.
func growBuffer(b []byte, n int) []byte {
	if len(b) >= n {
		return b
	}
	if cap(b) >= n {
		return b[:n]
	}
	nb := make([]byte, n)
	copy(nb, b)
	return nb
}
