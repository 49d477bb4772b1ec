package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/YichunLL/gGPT/internal/domain"
	"github.com/YichunLL/gGPT/internal/usecase"
)

const predictionBody = `{"predictions":{"Length_cell":340,"Width_cell":120,"Height_cell":118.2,"Power_density":183.456},"deepseek_analysis":"Solid pack geometry."}`

type stubPredictor struct {
	body []byte
	err  error
}

func (p *stubPredictor) Predict(context.Context, domain.PackSpec) ([]byte, error) {
	return p.body, p.err
}

type stubCompleter struct {
	reply string
	err   error
}

func (c *stubCompleter) Chat(context.Context, []domain.ChatMessage) (string, error) {
	return c.reply, c.err
}

func newTestServer(t *testing.T, cfg ServerConfig, pred usecase.Predictor, comp usecase.Completer) (*Server, *Hub) {
	t.Helper()
	logger := discardLogger()
	hub, err := NewHub(logger)
	require.NoError(t, err)
	turns, err := usecase.NewTurnService(pred, comp, hub, logger)
	require.NoError(t, err)

	cfg.Logger = logger
	cfg.Hub = hub
	cfg.Turns = turns
	s, err := NewServer(cfg)
	require.NoError(t, err)
	return s, hub
}

func postChat(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

// waitForTranscript polls until the conversation transcript reaches want
// entries, then returns the snapshot.
func waitForTranscript(t *testing.T, hub *Hub, convID string, want int) []DisplayMessage {
	t.Helper()
	var snap []DisplayMessage
	require.Eventually(t, func() bool {
		conv, err := hub.lookup(convID)
		if err != nil {
			return false
		}
		conv.mu.Lock()
		snap = conv.transcript.snapshot()
		conv.mu.Unlock()
		return len(snap) == want
	}, 2*time.Second, 10*time.Millisecond)
	return snap
}

// ---------------------------------------------------------------------------
// NewServer
// ---------------------------------------------------------------------------

func TestNewServer_Validation(t *testing.T) {
	logger := discardLogger()
	hub, err := NewHub(logger)
	require.NoError(t, err)
	turns, err := usecase.NewTurnService(&stubPredictor{}, &stubCompleter{}, hub, logger)
	require.NoError(t, err)

	_, err = NewServer(ServerConfig{Hub: hub, Turns: turns})
	require.Error(t, err)
	require.Contains(t, err.Error(), "logger")

	_, err = NewServer(ServerConfig{Logger: logger, Turns: turns})
	require.Error(t, err)
	require.Contains(t, err.Error(), "hub")

	_, err = NewServer(ServerConfig{Logger: logger, Hub: hub})
	require.Error(t, err)
	require.Contains(t, err.Error(), "turn service")
}

// ---------------------------------------------------------------------------
// Plain HTTP surface
// ---------------------------------------------------------------------------

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t, ServerConfig{}, &stubPredictor{}, &stubCompleter{})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestServer_Index(t *testing.T) {
	s, _ := newTestServer(t, ServerConfig{}, &stubPredictor{}, &stubCompleter{})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/html")
	require.Contains(t, w.Body.String(), "GotionGPT")

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

// ---------------------------------------------------------------------------
// POST /api/chat
// ---------------------------------------------------------------------------

func TestServer_Chat_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, ServerConfig{}, &stubPredictor{}, &stubCompleter{})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat", nil))
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_Chat_InvalidBody(t *testing.T) {
	s, _ := newTestServer(t, ServerConfig{}, &stubPredictor{}, &stubCompleter{})

	w := postChat(t, s, `{"content":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "invalid_body")
}

func TestServer_Chat_BlankContent(t *testing.T) {
	s, _ := newTestServer(t, ServerConfig{}, &stubPredictor{}, &stubCompleter{})

	w := postChat(t, s, `{"content":"   "}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "empty_content")
}

func TestServer_Chat_QuestionTurn(t *testing.T) {
	stubIDs(t)
	s, hub := newTestServer(t, ServerConfig{},
		&stubPredictor{body: []byte(predictionBody)},
		&stubCompleter{reply: "Power density is energy per unit mass, in Wh/kg."})

	w := postChat(t, s, `{"content":"what is power density?"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		ConversationID string `json:"conversation_id"`
		Status         string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "accepted", resp.Status)
	require.NotEmpty(t, resp.ConversationID)

	// welcome, echo, reply; the status message must be gone
	snap := waitForTranscript(t, hub, resp.ConversationID, 3)
	require.Equal(t, usecase.WelcomeMessage, snap[0].Content)
	require.Equal(t, "what is power density?", snap[1].Content)
	require.Equal(t, "You", snap[1].Author)
	require.Equal(t, "Power density is energy per unit mass, in Wh/kg.", snap[2].Content)
	require.Equal(t, usecase.AuthorAnalyst, snap[2].Author)
}

func TestServer_Chat_SpecTurn(t *testing.T) {
	stubIDs(t)
	s, hub := newTestServer(t, ServerConfig{},
		&stubPredictor{body: []byte(predictionBody)},
		&stubCompleter{reply: "unused"})

	w := postChat(t, s, `{"content":"1000, 1600, 1500, 60, 400"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		ConversationID string `json:"conversation_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	// welcome, echo, dimension summary, analysis
	snap := waitForTranscript(t, hub, resp.ConversationID, 4)
	require.Contains(t, snap[2].Content, "📐 **Predicted Cell Dimensions**")
	require.Contains(t, snap[2].Content, "183.46")
	require.Equal(t, "Solid pack geometry.", snap[3].Content)
	require.Equal(t, usecase.AuthorAnalyst, snap[3].Author)
}

func TestServer_Chat_ReusesConversation(t *testing.T) {
	stubIDs(t)
	s, hub := newTestServer(t, ServerConfig{},
		&stubPredictor{body: []byte(predictionBody)},
		&stubCompleter{reply: "first"})

	w := postChat(t, s, `{"content":"hello"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var resp struct {
		ConversationID string `json:"conversation_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	waitForTranscript(t, hub, resp.ConversationID, 3)

	w = postChat(t, s, fmt.Sprintf(`{"conversation_id":%q,"content":"and again"}`, resp.ConversationID))
	require.Equal(t, http.StatusAccepted, w.Code)

	snap := waitForTranscript(t, hub, resp.ConversationID, 5)
	// exactly one welcome, both turns present
	require.Equal(t, usecase.WelcomeMessage, snap[0].Content)
	require.Equal(t, "hello", snap[1].Content)
	require.Equal(t, "and again", snap[3].Content)
}

func TestServer_Chat_RateLimited(t *testing.T) {
	s, _ := newTestServer(t, ServerConfig{RatePerSecond: 0.001, RateBurst: 1},
		&stubPredictor{}, &stubCompleter{})

	w := postChat(t, s, `{"content":"   "}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = postChat(t, s, `{"content":"   "}`)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "1", w.Header().Get("Retry-After"))
	require.Contains(t, w.Body.String(), "rate_limited")
}

// ---------------------------------------------------------------------------
// WebSocket end to end
// ---------------------------------------------------------------------------

func TestServer_WebSocketStream(t *testing.T) {
	s, _ := newTestServer(t, ServerConfig{},
		&stubPredictor{body: []byte(predictionBody)},
		&stubCompleter{reply: "It depends on the cell chemistry."})

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	readFrame := func() []byte {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		return data
	}
	readEnv := func() envelope {
		var env envelope
		require.NoError(t, json.Unmarshal(readFrame(), &env))
		return env
	}

	hello := readEnv()
	require.Equal(t, opHello, hello.Op)
	require.NotEmpty(t, hello.ID)

	welcome := readEnv()
	require.Equal(t, opCreate, welcome.Op)
	require.Equal(t, usecase.WelcomeMessage, welcome.Content)

	// keepalive
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	require.Equal(t, "pong", string(readFrame()))

	// drive a turn over HTTP and watch it stream back
	body := fmt.Sprintf(`{"conversation_id":%q,"content":"what about LFP?"}`, hello.ID)
	resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	_ = resp.Body.Close()

	var seen []envelope
	var reply envelope
	for {
		env := readEnv()
		seen = append(seen, env)
		if env.Op == opCreate && env.Author == usecase.AuthorAnalyst {
			reply = env
			break
		}
	}
	require.Equal(t, "It depends on the cell chemistry.", reply.Content)

	// the user echo streamed first, and the status message was cleaned up
	require.Equal(t, opCreate, seen[0].Op)
	require.Equal(t, "You", seen[0].Author)
	require.Equal(t, "what about LFP?", seen[0].Content)

	removed := false
	for _, env := range seen {
		if env.Op == opRemove {
			removed = true
		}
	}
	require.True(t, removed, "status message should be removed after the turn")
}

func TestServer_WebSocketReconnectReplays(t *testing.T) {
	s, hub := newTestServer(t, ServerConfig{},
		&stubPredictor{body: []byte(predictionBody)},
		&stubCompleter{reply: "Around 160 Wh/kg for LFP."})

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	// run a turn with nobody attached
	w := postChat(t, s, `{"content":"typical LFP density?"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var resp struct {
		ConversationID string `json:"conversation_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	waitForTranscript(t, hub, resp.ConversationID, 3)

	// a late joiner replays the whole conversation
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?conversation_id=" + resp.ConversationID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	var frames []envelope
	for i := 0; i < 4; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var env envelope
		require.NoError(t, json.Unmarshal(data, &env))
		frames = append(frames, env)
	}

	require.Equal(t, envelope{Op: opHello, ID: resp.ConversationID}, frames[0])
	require.Equal(t, usecase.WelcomeMessage, frames[1].Content)
	require.Equal(t, "typical LFP density?", frames[2].Content)
	require.Equal(t, "Around 160 Wh/kg for LFP.", frames[3].Content)
}
