package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/YichunLL/gGPT/internal/domain"
)

// runPrediction drives the prediction path: call the service, validate its
// payload, render the cell dimensions and the analysis. Every early exit
// stops the indicator first and rewrites the status message, so the user
// always sees what happened.
func (s *TurnService) runPrediction(ctx context.Context, sess *Session, spec domain.PackSpec) TurnOutcome {
	statusID, err := s.messenger.Send(ctx, sess.ID(), statusAnalyzing, "")
	if err != nil {
		s.logger.Error("failed to open status message", "conversation_id", sess.ID(), "err", err)
		return TurnOutcome{Kind: OutcomeFailure, Reason: ReasonDisplayFailed}
	}
	ind := s.startIndicator(ctx, sess.ID(), statusID, statusAnalyzing)
	// Joined again on the exit paths below; the defer only covers panics.
	defer ind.stop()

	body, err := s.predictor.Predict(ctx, spec)
	if err != nil {
		ind.stop()
		var statusErr upstreamStatusCoder
		if errors.As(err, &statusErr) {
			s.update(ctx, sess.ID(), statusID, formatStatusFailure(statusErr.HTTPStatusCode(), statusErr.ResponseBody()))
		} else {
			s.update(ctx, sess.ID(), statusID, formatRequestFailure(err))
		}
		s.logger.Warn("prediction call failed", "conversation_id", sess.ID(), "err", err)
		return TurnOutcome{Kind: OutcomeFailure, Reason: ReasonUpstreamHTTP}
	}

	var env predictionEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		ind.stop()
		s.update(ctx, sess.ID(), statusID, formatDecodeFailure(body, err))
		s.logger.Warn("prediction body was not JSON", "conversation_id", sess.ID(), "err", err)
		return TurnOutcome{Kind: OutcomeFailure, Reason: ReasonUpstreamDecode}
	}

	cell, err := decodePredictions(env.Predictions)
	if err != nil {
		ind.stop()
		if errors.Is(err, errNoPredictions) {
			s.update(ctx, sess.ID(), statusID, msgNoPredictions)
			return TurnOutcome{Kind: OutcomeFailure, Reason: ReasonUpstreamShape}
		}
		s.update(ctx, sess.ID(), statusID, formatInvalidPredictions(env.Predictions, err))
		return TurnOutcome{Kind: OutcomeFailure, Reason: ReasonUpstreamValue}
	}

	ind.stop()
	s.remove(ctx, sess.ID(), statusID)
	s.send(ctx, sess.ID(), formatCellPrediction(cell), "")

	switch analysis := decodeAnalysis(env.DeepseekAnalysis); analysis.Kind {
	case domain.AnalysisText:
		sess.append(
			domain.ChatMessage{Role: domain.RoleUser, Content: analysisPromptText},
			domain.ChatMessage{Role: domain.RoleAssistant, Content: analysis.Text},
		)
		s.send(ctx, sess.ID(), analysis.Text, AuthorAnalyst)
	case domain.AnalysisServiceError:
		s.send(ctx, sess.ID(), formatAnalysisError(analysis.Message), AuthorAnalyst)
	default:
		s.send(ctx, sess.ID(), msgInvalidAnalysis, "")
	}

	return TurnOutcome{Kind: OutcomePredictionRendered}
}
