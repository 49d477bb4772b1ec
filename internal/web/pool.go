package web

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// wsConn is the subset of *websocket.Conn the pool needs. Tests substitute
// in-memory stubs.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// connectionPool fans frames out to every socket attached to one
// conversation. A failed write drops the connection on the spot so one dead
// client never wedges the rest.
type connectionPool struct {
	logger *slog.Logger
	convID string

	mu    sync.Mutex
	conns map[wsConn]struct{}
}

func newConnectionPool(convID string, logger *slog.Logger) *connectionPool {
	return &connectionPool{
		logger: logger,
		convID: convID,
		conns:  make(map[wsConn]struct{}),
	}
}

func (p *connectionPool) add(conn wsConn) {
	p.mu.Lock()
	p.conns[conn] = struct{}{}
	p.mu.Unlock()
}

func (p *connectionPool) remove(conn wsConn) {
	p.mu.Lock()
	delete(p.conns, conn)
	p.mu.Unlock()
	_ = conn.Close()
}

func (p *connectionPool) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

func (p *connectionPool) broadcast(data []byte) {
	if len(data) == 0 {
		return
	}
	p.mu.Lock()
	for conn := range p.conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			p.logger.Warn("websocket write failed, dropping connection",
				"conversation_id", p.convID, "error", err)
			delete(p.conns, conn)
			_ = conn.Close()
		}
	}
	p.mu.Unlock()
}

// send writes to a single attached connection. No-op when the connection is
// not (or no longer) a member.
func (p *connectionPool) send(conn wsConn, data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.conns[conn]; !ok {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		p.logger.Warn("websocket write failed, dropping connection",
			"conversation_id", p.convID, "error", err)
		delete(p.conns, conn)
		_ = conn.Close()
	}
}

func (p *connectionPool) closeAll() {
	p.mu.Lock()
	for conn := range p.conns {
		_ = conn.Close()
		delete(p.conns, conn)
	}
	p.mu.Unlock()
}
