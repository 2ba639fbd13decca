package rpc

import "net"

func pipePair() (net.Conn, net.Conn) {
	return net.Pipe()
}

// DialInProc connects a client-side Socket to server directly through an
// in-memory net.Pipe, with no listener or real transport involved —
// adapted from the teacher's inproc.go, which built the equivalent
// shortcut for its own Handler/Client pair. Useful for tests and for
// embedding a server and its caller in the same process.
func DialInProc(server *AbstractServer) *Socket {
	client, serverSide := pipePair()
	server.adopt(serverSide)
	return NewSocket(client, WithFormat(server.format), WithLogger(server.logger))
}
