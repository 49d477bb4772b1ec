package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/YichunLL/gGPT/internal/usecase"
	"github.com/YichunLL/gGPT/internal/web/static"
)

// authorUser labels the echoed copy of what the user typed.
const authorUser = "You"

const maxChatBodyBytes = 64 << 10

// ServerConfig wires the HTTP surface.
type ServerConfig struct {
	Logger *slog.Logger
	Hub    *Hub
	Turns  *usecase.TurnService

	// RatePerSecond enables per-IP rate limiting on the API when positive.
	RatePerSecond float64
	RateBurst     int
	TrustProxy    bool
}

// Server exposes the chat API, the WebSocket endpoint and the embedded UI.
type Server struct {
	logger     *slog.Logger
	hub        *Hub
	turns      *usecase.TurnService
	limiter    *rateLimiter
	trustProxy bool
	upgrader   websocket.Upgrader
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Logger == nil {
		return nil, errors.New("web: logger must not be nil")
	}
	if cfg.Hub == nil {
		return nil, errors.New("web: hub must not be nil")
	}
	if cfg.Turns == nil {
		return nil, errors.New("web: turn service must not be nil")
	}
	s := &Server{
		logger:     cfg.Logger,
		hub:        cfg.Hub,
		turns:      cfg.Turns,
		trustProxy: cfg.TrustProxy,
		upgrader:   websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = newRateLimiter(cfg.RatePerSecond, burst)
	}
	return s, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/api/chat", s.rateLimit(http.HandlerFunc(s.handleChat)))
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(static.Index)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

// handleChat accepts a turn, echoes the user message and dispatches the
// work on its own goroutine. The 202 means "queued"; everything the turn
// renders arrives over the conversation's sockets.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", s.logger)
		return
	}
	var body struct {
		ConversationID string `json:"conversation_id"`
		Content        string `json:"content"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON", s.logger)
		return
	}
	content := strings.TrimSpace(body.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "empty_content", "content must not be empty", s.logger)
		return
	}

	conv, _ := s.hub.ensureConversation(r.Context(), strings.TrimSpace(body.ConversationID))

	if _, err := s.hub.Send(r.Context(), conv.id, content, authorUser); err != nil {
		s.logger.Error("echo user message", "conversation_id", conv.id, "error", err)
		writeError(w, http.StatusInternalServerError, "echo_failed", "failed to record message", s.logger)
		return
	}

	go func() {
		out := s.turns.HandleTurn(context.Background(), conv.session, content)
		if out.Kind == usecase.OutcomeFailure {
			s.logger.Warn("turn failed",
				"conversation_id", conv.id, "reason", string(out.Reason))
			return
		}
		s.logger.Info("turn completed",
			"conversation_id", conv.id, "outcome", string(out.Kind))
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"conversation_id": conv.id,
		"status":          "accepted",
	}, s.logger)
}

// handleWS upgrades the connection and joins it to a conversation, minting
// one when the client does not name an existing id.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	convID := strings.TrimSpace(r.URL.Query().Get("conversation_id"))
	conv, _ := s.hub.ensureConversation(r.Context(), convID)
	if err := s.hub.attach(conv, conn); err != nil {
		s.logger.Warn("websocket attach failed", "conversation_id", conv.id, "error", err)
		return
	}
	go s.readLoop(conv, conn)
}

// readLoop drains inbound frames until the socket dies. Clients only ever
// send ping keepalives; anything else is ignored.
func (s *Server) readLoop(conv *conversation, conn *websocket.Conn) {
	defer s.hub.detach(conv, conn)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if strings.TrimSpace(string(data)) == "ping" {
			conv.pool.send(conn, []byte("pong"))
		}
	}
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, s.trustProxy)
		if !s.limiter.allow(ip) {
			s.logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path, "method", r.Method)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", s.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}
