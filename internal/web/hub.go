// Package web hosts the chat surface: a WebSocket hub that renders turn
// output as envelopes, the HTTP API that feeds turns into the dispatcher,
// and the embedded single-page client.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/YichunLL/gGPT/internal/usecase"
)

// ErrConversationNotFound is returned for operations addressed to a
// conversation the hub does not hold (never created, or evicted).
var ErrConversationNotFound = errors.New("web: conversation not found")

// id generation is indirected for deterministic tests.
var (
	newConversationID = func() string { return uuid.NewString() }
	newMessageID      = func() string { return uuid.NewString() }
)

// conversation bundles everything scoped to one chat: its turn session, the
// transcript clients replay on attach, and the sockets currently watching.
type conversation struct {
	id      string
	session *usecase.Session
	pool    *connectionPool

	mu         sync.Mutex
	transcript *transcript

	lastSeen time.Time // guarded by Hub.mu
}

// Hub owns all live conversations and implements the messenger contract the
// turn service renders through. Every Send, Update and Remove mutates the
// conversation transcript and broadcasts a matching envelope, both under the
// conversation lock, so attached clients and later replays always agree.
type Hub struct {
	logger *slog.Logger

	mu    sync.Mutex
	convs map[string]*conversation
}

func NewHub(logger *slog.Logger) (*Hub, error) {
	if logger == nil {
		return nil, errors.New("web: logger must not be nil")
	}
	return &Hub{
		logger: logger,
		convs:  make(map[string]*conversation),
	}, nil
}

// ensureConversation returns the conversation for id, creating it when
// missing. Pass "" to mint a fresh one. A new conversation greets the user
// with the welcome message before anything else lands in its transcript.
func (h *Hub) ensureConversation(ctx context.Context, id string) (*conversation, bool) {
	if id == "" {
		id = newConversationID()
	}
	h.mu.Lock()
	conv, ok := h.convs[id]
	if !ok {
		conv = &conversation{
			id:         id,
			session:    usecase.NewSession(id),
			pool:       newConnectionPool(id, h.logger),
			transcript: newTranscript(),
			lastSeen:   time.Now(),
		}
		h.convs[id] = conv
	}
	h.mu.Unlock()

	if ok {
		return conv, false
	}
	h.logger.Info("conversation created", "conversation_id", id)
	if _, err := h.Send(ctx, id, usecase.WelcomeMessage, ""); err != nil {
		h.logger.Warn("welcome message failed", "conversation_id", id, "error", err)
	}
	return conv, true
}

func (h *Hub) lookup(id string) (*conversation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conv, ok := h.convs[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	conv.lastSeen = time.Now()
	return conv, nil
}

// Send appends a message to the conversation and broadcasts it. The
// returned id addresses later Update and Remove calls.
func (h *Hub) Send(_ context.Context, conversationID, content, author string) (string, error) {
	conv, err := h.lookup(conversationID)
	if err != nil {
		return "", err
	}
	id := newMessageID()
	conv.mu.Lock()
	defer conv.mu.Unlock()
	conv.transcript.append(DisplayMessage{ID: id, Content: content, Author: author})
	h.publishLocked(conv, envelope{Op: opCreate, ID: id, Content: content, Author: author})
	return id, nil
}

// Update rewrites an existing message in place.
func (h *Hub) Update(_ context.Context, conversationID, messageID, content string) error {
	conv, err := h.lookup(conversationID)
	if err != nil {
		return err
	}
	conv.mu.Lock()
	defer conv.mu.Unlock()
	if !conv.transcript.update(messageID, content) {
		return fmt.Errorf("web: message %s not found in conversation %s", messageID, conversationID)
	}
	h.publishLocked(conv, envelope{Op: opUpdate, ID: messageID, Content: content})
	return nil
}

// Remove deletes a message from the conversation on every client.
func (h *Hub) Remove(_ context.Context, conversationID, messageID string) error {
	conv, err := h.lookup(conversationID)
	if err != nil {
		return err
	}
	conv.mu.Lock()
	defer conv.mu.Unlock()
	if !conv.transcript.remove(messageID) {
		return fmt.Errorf("web: message %s not found in conversation %s", messageID, conversationID)
	}
	h.publishLocked(conv, envelope{Op: opRemove, ID: messageID})
	return nil
}

// publishLocked broadcasts an envelope to the conversation's pool. Callers
// must hold conv.mu so broadcast order matches transcript order.
func (h *Hub) publishLocked(conv *conversation, env envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("marshal envelope", "conversation_id", conv.id, "error", err)
		return
	}
	conv.pool.broadcast(data)
}

// attach registers a socket with a conversation. The hello frame and the
// transcript replay go out under the conversation lock before the socket
// joins the pool, so no concurrently published envelope is missed or seen
// twice. A write failure closes the socket and leaves the pool untouched.
func (h *Hub) attach(conv *conversation, conn wsConn) error {
	conv.mu.Lock()
	defer conv.mu.Unlock()

	frames := make([]envelope, 0, len(conv.transcript.entries)+1)
	frames = append(frames, envelope{Op: opHello, ID: conv.id})
	for _, m := range conv.transcript.snapshot() {
		frames = append(frames, envelope{Op: opCreate, ID: m.ID, Content: m.Content, Author: m.Author})
	}
	for _, env := range frames {
		data, err := json.Marshal(env)
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("web: marshal replay envelope: %w", err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			_ = conn.Close()
			return fmt.Errorf("web: replay write: %w", err)
		}
	}
	conv.pool.add(conn)
	return nil
}

// detach drops a socket and stamps the conversation for idle accounting.
func (h *Hub) detach(conv *conversation, conn wsConn) {
	conv.pool.remove(conn)
	h.mu.Lock()
	conv.lastSeen = time.Now()
	h.mu.Unlock()
}

// Janitor periodically evicts conversations that have had no connections
// and no activity for ttl. Blocks until ctx is cancelled; callers run it on
// its own goroutine.
func (h *Hub) Janitor(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.evictIdle(ttl)
		}
	}
}

func (h *Hub) evictIdle(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	now := time.Now()
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conv := range h.convs {
		if conv.pool.count() > 0 || now.Sub(conv.lastSeen) < ttl {
			continue
		}
		delete(h.convs, id)
		conv.pool.closeAll()
		h.logger.Info("conversation evicted", "conversation_id", id)
	}
}

// CloseAll drops every connection in every conversation. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conv := range h.convs {
		conv.pool.closeAll()
	}
}
