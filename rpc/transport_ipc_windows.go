//go:build windows

package rpc

import (
	"net"
	"time"

	npipe "gopkg.in/natefinch/npipe.v2"
)

const defaultIPCDialTimeout = 2 * time.Second

// ListenIPC binds a Windows named pipe at endpoint.
func ListenIPC(endpoint string) (net.Listener, error) {
	return npipe.Listen(endpoint)
}

// DialIPC connects to a Windows named pipe endpoint.
func DialIPC(endpoint string) (net.Conn, error) {
	return npipe.DialTimeout(endpoint, defaultIPCDialTimeout)
}
