package rpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAbstractServerServesOverTCP(t *testing.T) {
	server := NewAbstractServer()
	defer server.Close()

	svc := NewService(anonymousServiceName)
	svc.AddHandler(NewHandler("add", []ParamSpec{
		{Name: "a", Type: TInt}, {Name: "b", Type: TInt},
	}, TInt, func(ctx context.Context, args []Value) (Value, map[string]Value, Error) {
		return Int(args[0].IntValue() + args[1].IntValue()), nil, nil
	}))
	require.True(t, server.AddService(svc))

	listener, err := ListenTCP("127.0.0.1:0")
	require.NoError(t, err)
	require.True(t, server.Listen(listener))

	conn, err := DialTCP(listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	client := NewSocket(conn)
	defer client.Close()

	resp, err := client.InvokeRemoteMethodBlocking("add", 2, 3)
	require.NoError(t, err)
	require.Equal(t, TypeResponse, resp.Type())
	require.Equal(t, int64(5), resp.Result().IntValue())
}

func TestAbstractServerTracksConnectedClients(t *testing.T) {
	server := NewAbstractServer()
	defer server.Close()

	listener, err := ListenTCP("127.0.0.1:0")
	require.NoError(t, err)
	server.Listen(listener)

	connected := make(chan struct{}, 1)
	server.OnClientConnected(func(s *Socket) { connected <- struct{}{} })

	conn, err := DialTCP(listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	NewSocket(conn)

	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("expected OnClientConnected to fire")
	}
	require.Equal(t, 1, server.ConnectedClientCount())
}

func TestAbstractServerNotifyConnectedClients(t *testing.T) {
	server := NewAbstractServer()
	defer server.Close()

	listener, err := ListenTCP("127.0.0.1:0")
	require.NoError(t, err)
	server.Listen(listener)

	conn, err := DialTCP(listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	client := NewSocket(conn)
	defer client.Close()

	received := make(chan Message, 1)
	client.OnMessage(func(m Message) {
		if m.Type() == TypeNotification {
			received <- m
		}
	})

	// Give the accept loop a moment to register the connection before
	// broadcasting, since adopt() runs asynchronously off Accept.
	time.Sleep(50 * time.Millisecond)
	server.Notify("tick", "tock")

	select {
	case m := <-received:
		require.Equal(t, "tick", m.Method())
	case <-time.After(time.Second):
		t.Fatal("expected the notification to be delivered")
	}
}
