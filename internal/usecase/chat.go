package usecase

import (
	"context"
	"strings"

	"github.com/YichunLL/gGPT/internal/domain"
)

// runChat drives the follow-up path: record the question, ask the LLM with
// the full history, and always deliver a reply. Completion failures become
// the reply text instead of aborting the turn.
func (s *TurnService) runChat(ctx context.Context, sess *Session, text string) TurnOutcome {
	sess.append(domain.ChatMessage{Role: domain.RoleUser, Content: strings.TrimSpace(text)})

	statusID, err := s.messenger.Send(ctx, sess.ID(), statusThinking, "")
	if err != nil {
		s.logger.Error("failed to open status message", "conversation_id", sess.ID(), "err", err)
		return TurnOutcome{Kind: OutcomeFailure, Reason: ReasonDisplayFailed}
	}
	ind := s.startIndicator(ctx, sess.ID(), statusID, statusThinking)
	// Joined again before the reply goes out; the defer only covers panics.
	defer ind.stop()

	out := TurnOutcome{Kind: OutcomeChatReply}
	reply, err := s.completer.Chat(ctx, sess.snapshot())
	if err != nil {
		reply = formatChatFailure(err)
		out = TurnOutcome{Kind: OutcomeFailure, Reason: ReasonCompletionCall}
		s.logger.Warn("completion call failed", "conversation_id", sess.ID(), "err", err)
	} else {
		sess.append(domain.ChatMessage{Role: domain.RoleAssistant, Content: reply})
	}

	ind.stop()
	s.remove(ctx, sess.ID(), statusID)
	s.send(ctx, sess.ID(), reply, AuthorAnalyst)
	return out
}
