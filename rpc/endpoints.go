package rpc

import (
	"net/http"
	"path/filepath"
	"runtime"
)

func DefaultWSEndpoint() string {
	return "127.0.0.1:8545"
}

func DefaultIPCEndpoint(name string) string {
	if runtime.GOOS == "windows" {
		return `\\.\pipe\` + name + `.ipc`
	}
	return filepath.Join("/tmp", name+".ipc")
}

// StartIPCEndpoint builds an AbstractServer, registers services on it,
// and starts accepting IPC connections at endpoint, the way the
// teacher's endpoints.go wires a Handler to an ipcListen listener.
func StartIPCEndpoint(endpoint string, services []*Service, opts ...ServerOption) (*AbstractServer, error) {
	server := NewAbstractServer(opts...)
	for _, svc := range services {
		server.AddService(svc)
	}

	listener, err := ListenIPC(endpoint)
	if err != nil {
		return nil, err
	}
	server.Listen(listener)
	return server, nil
}

// StartWSEndpoint builds an AbstractServer fronted by a WebSocket
// http.Server, the way the teacher's endpoints.go layers
// NewWSServer(wsOrigins, handler) over a plain TCP listener.
func StartWSEndpoint(endpoint string, services []*Service, wsOrigins []string, opts ...ServerOption) (*AbstractServer, error) {
	server := NewAbstractServer(opts...)
	for _, svc := range services {
		server.AddService(svc)
	}

	listener, err := ListenTCP(endpoint)
	if err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Handler: WebsocketUpgradeHandler(wsOrigins, server.adopt),
	}
	go httpServer.Serve(listener)

	server.mu.Lock()
	server.listener = listener
	server.mu.Unlock()
	return server, nil
}
