package rpc

import "time"

// Config collects the ambient knobs an embedder sets once at startup
// rather than threading through every call: where to listen, how to
// render the wire, how long a blocking call waits, how large a single
// frame may grow, and which WebSocket Origins to accept (SPEC_FULL.md
// §3). It is a plain value type, constructed programmatically or from
// cmd/rpcserver's urfave/cli/v2 flags, with no behavior of its own.
type Config struct {
	ListenEndpoint string
	Format         Format
	CallTimeout    time.Duration
	MaxFrameSize   int
	WSOrigins      []string
}

// DefaultConfig returns the same defaults NewAbstractServer and NewSocket
// fall back to when no options are supplied.
func DefaultConfig() Config {
	return Config{
		Format:       Compact,
		CallTimeout:  DefaultCallTimeout,
		MaxFrameSize: DefaultMaxFrameSize,
	}
}

// ServerOptions translates c into the ServerOption list NewAbstractServer
// expects, so a caller can go straight from a parsed Config to a running
// server without restating each field as its own option.
func (c Config) ServerOptions() []ServerOption {
	return []ServerOption{
		WithServerFormat(c.Format),
		WithServerCallTimeout(c.CallTimeout),
		WithServerMaxFrameSize(c.MaxFrameSize),
	}
}
