// Package usecase orchestrates chat turns: it classifies the user's text,
// drives the prediction and follow-up flows against the upstream services,
// and guarantees that every turn leaves something visible in the chat.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/YichunLL/gGPT/internal/domain"
	"github.com/YichunLL/gGPT/internal/parser"
)

// Predictor calls the prediction service and returns the raw 2xx response
// body. Non-2xx responses surface as errors carrying the status and body.
type Predictor interface {
	Predict(ctx context.Context, spec domain.PackSpec) ([]byte, error)
}

// Completer produces an assistant reply for the given history.
type Completer interface {
	Chat(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// Messenger is the chat UI as the orchestrators see it: create a message
// and get a handle back, rewrite it, or take it away.
type Messenger interface {
	Send(ctx context.Context, conversationID, content, author string) (string, error)
	Update(ctx context.Context, conversationID, messageID, content string) error
	Remove(ctx context.Context, conversationID, messageID string) error
}

// upstreamStatusCoder matches prediction-service errors that carry an HTTP
// status and response body.
type upstreamStatusCoder interface {
	HTTPStatusCode() int
	ResponseBody() string
}

// OutcomeKind tags the observable effect of one dispatched turn.
type OutcomeKind string

const (
	OutcomePredictionRendered OutcomeKind = "prediction_rendered"
	OutcomeChatReply          OutcomeKind = "chat_reply"
	OutcomeFailure            OutcomeKind = "failure"
)

// TurnOutcome reports what one turn rendered. Reason is set only for
// failures.
type TurnOutcome struct {
	Kind   OutcomeKind
	Reason FailureReason
}

// TurnService dispatches user messages onto the prediction or chat path.
type TurnService struct {
	predictor Predictor
	completer Completer
	messenger Messenger
	logger    *slog.Logger

	indicatorInterval time.Duration
}

func NewTurnService(p Predictor, c Completer, m Messenger, logger *slog.Logger) (*TurnService, error) {
	if p == nil {
		return nil, errors.New("usecase: predictor must not be nil")
	}
	if c == nil {
		return nil, errors.New("usecase: completer must not be nil")
	}
	if m == nil {
		return nil, errors.New("usecase: messenger must not be nil")
	}
	if logger == nil {
		return nil, errors.New("usecase: logger must not be nil")
	}
	return &TurnService{
		predictor:         p,
		completer:         c,
		messenger:         m,
		logger:            logger,
		indicatorInterval: defaultIndicatorInterval,
	}, nil
}

// HandleTurn processes one user message end to end. It holds the session's
// turn lock for the whole turn, so concurrent submissions to the same
// conversation queue behind each other while other sessions proceed.
func (s *TurnService) HandleTurn(ctx context.Context, sess *Session, text string) (out TurnOutcome) {
	if sess == nil {
		s.logger.Error("turn dispatched without a session")
		return TurnOutcome{Kind: OutcomeFailure, Reason: ReasonUnclassified}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		s.logger.Error("turn panicked",
			"conversation_id", sess.ID(),
			"panic", r,
			"stack", string(debug.Stack()),
		)
		if _, err := s.messenger.Send(ctx, sess.ID(), formatUnexpected(panicKind(r)), ""); err != nil {
			s.logger.Error("failed to report turn panic", "conversation_id", sess.ID(), "err", err)
		}
		out = TurnOutcome{Kind: OutcomeFailure, Reason: ReasonUnclassified}
	}()

	if spec, ok := parser.Classify(text); ok {
		return s.runPrediction(ctx, sess, spec)
	}
	return s.runChat(ctx, sess, text)
}

// panicKind names the dynamic type of a recovered panic value.
func panicKind(r any) string {
	return fmt.Sprintf("%T", r)
}

// send delivers a message, logging instead of failing the turn when the UI
// rejects it.
func (s *TurnService) send(ctx context.Context, conversationID, content, author string) {
	if _, err := s.messenger.Send(ctx, conversationID, content, author); err != nil {
		s.logger.Error("failed to send chat message", "conversation_id", conversationID, "err", err)
	}
}

func (s *TurnService) update(ctx context.Context, conversationID, messageID, content string) {
	if err := s.messenger.Update(ctx, conversationID, messageID, content); err != nil {
		s.logger.Error("failed to update chat message",
			"conversation_id", conversationID,
			"message_id", messageID,
			"err", err,
		)
	}
}

func (s *TurnService) remove(ctx context.Context, conversationID, messageID string) {
	if err := s.messenger.Remove(ctx, conversationID, messageID); err != nil {
		s.logger.Error("failed to remove chat message",
			"conversation_id", conversationID,
			"message_id", messageID,
			"err", err,
		)
	}
}
