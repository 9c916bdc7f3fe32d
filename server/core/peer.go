package core

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rotisserie/eris"
)

// peer is one joined client. Writes go through send so a slow reader never
// blocks the relay; a full queue gets the peer dropped.
type peer struct {
	id       string
	room     string
	joinTime float64
	conn     *websocket.Conn
	send     chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newPeer(id, room string, joinTime float64, conn *websocket.Conn, queue int) *peer {
	return &peer{
		id:       id,
		room:     room,
		joinTime: joinTime,
		conn:     conn,
		send:     make(chan []byte, queue),
		done:     make(chan struct{}),
	}
}

// enqueue reports false when the peer's queue is full or it is closing.
func (p *peer) enqueue(payload []byte) bool {
	select {
	case <-p.done:
		return false
	default:
	}
	select {
	case p.send <- payload:
		return true
	default:
		return false
	}
}

func (p *peer) close() {
	p.closeOnce.Do(func() { close(p.done) })
}

func (p *peer) writeLoop(ctx context.Context, timeout time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.done:
			return nil
		case payload := <-p.send:
			wctx, cancel := context.WithTimeout(ctx, timeout)
			err := p.conn.Write(wctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				return eris.Wrapf(err, "write to %s", p.id)
			}
		}
	}
}
