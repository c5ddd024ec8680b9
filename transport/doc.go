// Package transport implements the noisewire secure transport over an
// arbitrary duplex byte stream: a Noise NN handshake followed by an
// encrypted, length-prefixed frame layer multiplexing typed packets.
//
// Every operation (handshake, packet send, packet receive) is a resumable
// state machine driven by an external scheduler through Poll. Operations
// suspend only at the boundary calls into the underlying stream (peek, read,
// write, flush) and never block a thread.
//
// Example, driven by a goroutine-per-connection scheduler over TCP:
//
//	conn, _ := net.Dial("tcp", addr)
//	stream := transport.NewStreamConn(conn)
//	hs, _ := transport.InitiateStream(stream)
//	for {
//	    done, err := hs.Poll()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if done {
//	        break
//	    }
//	}
//	proto, _ := hs.Done()
//	send := proto.Send(stream, packet.Heartbeat{})
//	for {
//	    if done, err := send.Poll(); done || err != nil {
//	        break
//	    }
//	}
package transport
