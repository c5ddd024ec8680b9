package packet

// HeartbeatLen is the encoded size of a Heartbeat packet.
const HeartbeatLen = headerLen

// Heartbeat is a keepalive packet. It carries no payload beyond the common
// packet header.
type Heartbeat struct{}

// ID returns IDHeartbeat.
func (Heartbeat) ID() ID { return IDHeartbeat }

// Encode writes the packet into buf.
func (h Heartbeat) Encode(buf []byte) (int, error) {
	return encodeHeader(IDHeartbeat, buf)
}

// Decode reads the packet from buf, validating the ID tag first.
func (h *Heartbeat) Decode(buf []byte) (int, error) {
	return decodeHeader(IDHeartbeat, buf)
}
