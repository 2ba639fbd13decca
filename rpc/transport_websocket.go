package rpc

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gorilla/websocket"
	set "gopkg.in/fatih/set.v0"
)

// wsConn adapts a *websocket.Conn's message-oriented ReadMessage/
// WriteMessage pair to the io.ReadWriteCloser a Codec expects, buffering
// the tail of a websocket frame across short Read calls.
type wsConn struct {
	conn    *websocket.Conn
	readBuf []byte
}

func (w *wsConn) Read(p []byte) (int, error) {
	if len(w.readBuf) == 0 {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		w.readBuf = data
	}
	n := copy(p, w.readBuf)
	w.readBuf = w.readBuf[n:]
	return n, nil
}

func (w *wsConn) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsConn) Close() error { return w.conn.Close() }

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// WebsocketUpgradeHandler builds an http.Handler that upgrades each
// incoming request to a WebSocket connection, checks its Origin header
// against allowedOrigins the way the teacher's wsHandshakeValidator
// does, and hands the resulting duplex channel to onAccept (typically
// AbstractServer.adopt via NewSocket).
func WebsocketUpgradeHandler(allowedOrigins []string, onAccept func(io.ReadWriteCloser)) http.Handler {
	checkOrigin := wsOriginChecker(allowedOrigins)
	upgrader := wsUpgrader
	upgrader.CheckOrigin = checkOrigin

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		onAccept(&wsConn{conn: conn})
	})
}

// wsOriginChecker reproduces the teacher's allow-list semantics: "*"
// allows every origin, an empty list falls back to localhost and the
// local hostname, otherwise the Origin header must case-insensitively
// match an entry.
func wsOriginChecker(allowedOrigins []string) func(*http.Request) bool {
	origins := set.New(set.ThreadSafe)
	allowAll := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		if origin != "" {
			origins.Add(strings.ToLower(origin))
		}
	}
	if len(origins.List()) == 0 {
		origins.Add("http://localhost")
		if hostname, err := os.Hostname(); err == nil {
			origins.Add("http://" + strings.ToLower(hostname))
		}
	}

	return func(r *http.Request) bool {
		if allowAll {
			return true
		}
		origin := strings.ToLower(r.Header.Get("Origin"))
		return origins.Has(origin)
	}
}

// DialWebsocket dials a ws:// or wss:// endpoint and returns the
// resulting duplex channel for NewSocket to wrap.
func DialWebsocket(endpoint, origin string) (io.ReadWriteCloser, error) {
	if _, err := url.Parse(endpoint); err != nil {
		return nil, err
	}
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, _, err := websocket.DefaultDialer.Dial(endpoint, header)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}
