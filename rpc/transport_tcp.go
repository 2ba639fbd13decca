package rpc

import "net"

// ListenTCP binds a plain TCP listener, the transport StartWSEndpoint
// layers a WebSocket handshake on top of in the teacher's endpoints.go.
// A bare JSON-RPC Socket can also be driven directly off this listener
// with the Codec's balanced-JSON stream framing, with no handshake at all.
func ListenTCP(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// DialTCP connects a plain TCP client transport.
func DialTCP(addr string) (net.Conn, error) {
	return net.Dial("tcp", addr)
}
