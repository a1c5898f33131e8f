// Package view implements spec.md §6's "emitted data for visualization"
// interface as a live websocket feed of per-tick FrameSnapshots.
package view

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

// ErrSockCongestion indicates too many waiters on the socket for a given
// operation.
var ErrSockCongestion = errors.New("sock op failed due to congestion")

const (
	writeDeadline = time.Second
	writeWait     = 1 * time.Second
)

// websock serializes writes to a websocket connection. gorilla/websocket
// permits only one concurrent writer; this feed has exactly one concurrent
// reader (the control-frame pump in publisher.go's drainClientMessages,
// which never shares its goroutine with anything else), so only the write
// side needs serializing here — the ping goroutine and the snapshot
// publisher goroutine both write to the same connection.
type websock struct {
	writeSem chan struct{}
	ws       *websocket.Conn
}

func newWebSocket(ws *websocket.Conn) *websock {
	return &websock{
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

// Conn returns the underlying connection. Safe for non-concurrent setup
// (registering handlers) and for the single-owner read pump.
func (sock *websock) Conn() *websocket.Conn {
	return sock.ws
}

// Write serializes write operations on the connection.
func (sock *websock) Write(ctx context.Context, writeFn func(*websocket.Conn) error) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return writeFn(sock.ws)
	case <-time.After(writeDeadline):
		return ErrSockCongestion
	}
}

func isUnexpectedClose(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}
