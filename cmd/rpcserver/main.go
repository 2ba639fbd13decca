package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/louisyily/qjsonrpc/rpc"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	app         = &cli.App{Name: "rpcserver", Usage: "serve a demo JSON-RPC 2.0 service over IPC and WebSocket"}
	globalLogger *zap.Logger
	globalServer *rpc.AbstractServer
)

func init() {
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "ipc",
			Usage: "path of the Unix domain socket / named pipe to listen on",
			Value: rpc.DefaultIPCEndpoint("rpcserver"),
		},
		&cli.StringFlag{
			Name:  "ws",
			Usage: "address to listen for WebSocket connections on, empty to disable",
			Value: rpc.DefaultWSEndpoint(),
		},
		&cli.StringSliceFlag{
			Name:  "ws-origins",
			Usage: "allowed WebSocket Origin headers, * for any",
		},
		&cli.IntFlag{
			Name:  "verbosity",
			Usage: "zap level: -1=debug, 0=info, 1=warn, 2=error",
			Value: 0,
		},
		&cli.DurationFlag{
			Name:  "call-timeout",
			Usage: "default blocking-call timeout for accepted connections",
			Value: rpc.DefaultCallTimeout,
		},
		&cli.IntFlag{
			Name:  "max-frame-size",
			Usage: "maximum buffered bytes for a single JSON-RPC message",
			Value: rpc.DefaultMaxFrameSize,
		},
	}
	app.Before = func(ctx *cli.Context) error {
		cfg := zap.NewProductionConfig()
		cfg.Level.SetLevel(zapcore.Level(ctx.Int("verbosity")))
		logger, err := cfg.Build()
		if err != nil {
			return err
		}
		globalLogger = logger
		return nil
	}
	app.Action = runServer
	app.After = func(ctx *cli.Context) error {
		if globalServer != nil {
			return globalServer.Close()
		}
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "rpcserver: %v\n", err)
		os.Exit(1)
	}
}

func runServer(ctx *cli.Context) error {
	demo := demoService()

	cfg := rpc.Config{
		ListenEndpoint: ctx.String("ipc"),
		Format:         rpc.Compact,
		CallTimeout:    ctx.Duration("call-timeout"),
		MaxFrameSize:   ctx.Int("max-frame-size"),
		WSOrigins:      ctx.StringSlice("ws-origins"),
	}
	serverOpts := append(cfg.ServerOptions(), rpc.WithServerLogger(globalLogger))

	server, err := rpc.StartIPCEndpoint(cfg.ListenEndpoint, []*rpc.Service{demo}, serverOpts...)
	if err != nil {
		return fmt.Errorf("starting IPC endpoint: %w", err)
	}
	globalServer = server
	globalLogger.Info("listening on IPC", zap.String("endpoint", cfg.ListenEndpoint))

	if wsAddr := ctx.String("ws"); wsAddr != "" {
		if _, err := rpc.StartWSEndpoint(wsAddr, []*rpc.Service{demo}, cfg.WSOrigins, serverOpts...); err != nil {
			return fmt.Errorf("starting WebSocket endpoint: %w", err)
		}
		globalLogger.Info("listening on WebSocket", zap.String("endpoint", wsAddr))
	}

	server.OnClientConnected(func(s *rpc.Socket) {
		globalLogger.Info("client connected", zap.String("id", s.ID().String()))
	})
	server.OnClientDisconnected(func(s *rpc.Socket) {
		globalLogger.Info("client disconnected", zap.String("id", s.ID().String()))
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh
	return nil
}

// demoService exposes a small service with an overloaded method so a
// connecting client can exercise argument binding and ranking end to
// end: test(10) returns true, test("single") returns false.
func demoService() *rpc.Service {
	svc := rpc.NewService("demo")

	svc.AddHandler(rpc.NewHandler("ping", nil, rpc.TString,
		func(ctx context.Context, args []rpc.Value) (rpc.Value, map[string]rpc.Value, rpc.Error) {
			return rpc.String("pong"), nil, nil
		}))

	svc.AddHandler(rpc.NewHandler("test", []rpc.ParamSpec{
		{Name: "value", Type: rpc.TInt},
	}, rpc.TBool,
		func(ctx context.Context, args []rpc.Value) (rpc.Value, map[string]rpc.Value, rpc.Error) {
			return rpc.Bool(true), nil, nil
		}))

	svc.AddHandler(rpc.NewHandler("test", []rpc.ParamSpec{
		{Name: "value", Type: rpc.TString},
	}, rpc.TBool,
		func(ctx context.Context, args []rpc.Value) (rpc.Value, map[string]rpc.Value, rpc.Error) {
			return rpc.Bool(false), nil, nil
		}))

	return svc
}
