package usecase

import (
	"context"
	"strings"
	"time"
)

const (
	defaultIndicatorInterval = 500 * time.Millisecond
	indicatorDotCycle        = 4
)

// indicator animates a status message by rewriting it with a cycling dot
// suffix until stopped. stop blocks until the goroutine has exited, so once
// it returns no further rewrite of the status message can land.
type indicator struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// startIndicator launches the animation goroutine for the given status
// message. Update failures are dropped; the animation is best-effort.
func (s *TurnService) startIndicator(ctx context.Context, conversationID, messageID, base string) *indicator {
	ctx, cancel := context.WithCancel(ctx)
	ind := &indicator{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(ind.done)
		ticker := time.NewTicker(s.indicatorInterval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			content := base + strings.Repeat(".", i%indicatorDotCycle)
			if err := s.messenger.Update(ctx, conversationID, messageID, content); err != nil {
				s.logger.Debug("indicator update dropped",
					"conversation_id", conversationID,
					"err", err,
				)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return ind
}

// stop cancels the animation and waits for the goroutine to exit. It is
// safe to call more than once.
func (ind *indicator) stop() {
	ind.cancel()
	<-ind.done
}
