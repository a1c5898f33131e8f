package view

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/Talya-Perets/MeshtasticSimulator/mesh"
)

const (
	// pubResolution bounds how fast snapshots are forwarded to a viewer;
	// snapshots received faster than this are discarded, since a viewer
	// only needs the latest tick's state.
	pubResolution  = 100 * time.Millisecond
	pingResolution = 200 * time.Millisecond
	pongWait       = pingResolution * 4

	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{}

// ErrPongDeadlineExceeded indicates the client stopped responding to
// liveness pings.
var ErrPongDeadlineExceeded = errors.New("client disconnect, pong deadline exceeded")

// Publisher streams a FrameSnapshot feed to one connected websocket
// viewer, at a bounded rate, per SPEC_FULL.md §11 (adapted from
// niceyeti-tabular's generic websocket client, specialized to
// mesh.FrameSnapshot).
type Publisher struct {
	snapshots <-chan *mesh.FrameSnapshot
	ws        *websock
	rootCtx   context.Context
}

// NewPublisher upgrades an HTTP connection to a websocket and returns a
// Publisher that will forward snapshots to it once Sync is called.
func NewPublisher(snapshots <-chan *mesh.FrameSnapshot, w http.ResponseWriter, r *http.Request) (*Publisher, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, err
	}
	conn.SetReadLimit(maxMessageSize)

	return &Publisher{
		snapshots: snapshots,
		ws:        newWebSocket(conn),
		rootCtx:   r.Context(),
	}, nil
}

// Sync runs the publish loop alongside a liveness ping-pong and an idle
// reader, until the viewer disconnects or an error occurs.
func (p *Publisher) Sync() error {
	group, groupCtx := errgroup.WithContext(p.rootCtx)

	group.Go(func() error { return p.drainClientMessages(groupCtx) })
	group.Go(func() error { return p.pingPong(groupCtx) })
	group.Go(func() error { return p.publish(groupCtx) })

	return group.Wait()
}

// drainClientMessages discards anything the viewer sends; the feed is
// unidirectional, so there is no serialized Read wrapper to go through —
// this is the connection's only reader, reading straight off the raw
// connection is enough to pump gorilla's control-frame handling (pings
// and the close handshake) so pingPong's pong handler actually fires.
// Read errors are permanent and tear down the group.
func (p *Publisher) drainClientMessages(ctx context.Context) error {
	conn := p.ws.Conn()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
	}
}

func (p *Publisher) pingPong(ctx context.Context) error {
	pong := make(chan struct{})
	defer close(pong)
	p.ws.Conn().SetPongHandler(func(_ string) error {
		pong <- struct{}{}
		return nil
	})

	ticker := time.NewTicker(pingResolution)
	defer ticker.Stop()

	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}
			if err := p.ping(ctx); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (p *Publisher) ping(ctx context.Context) error {
	return p.ws.Write(ctx, func(ws *websocket.Conn) (err error) {
		if err = ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			if isUnexpectedClose(err) {
				err = fmt.Errorf("ping failed: %T %v", err, err)
			}
		}
		return
	})
}

func (p *Publisher) publish(ctx context.Context) error {
	lastSync := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-p.snapshots:
			if !ok {
				return nil
			}
			if time.Since(lastSync) < pubResolution {
				continue
			}
			lastSync = time.Now()

			err := p.ws.Write(ctx, func(ws *websocket.Conn) (writeErr error) {
				if writeErr = ws.SetWriteDeadline(time.Now().Add(writeWait)); writeErr != nil {
					return fmt.Errorf("failed to set deadline: %w", writeErr)
				}
				if writeErr = ws.WriteJSON(snap); writeErr != nil {
					if isUnexpectedClose(writeErr) {
						writeErr = fmt.Errorf("publish failed: %T %v", writeErr, writeErr)
					}
				}
				return
			})
			if err != nil {
				return err
			}
		}
	}
}
