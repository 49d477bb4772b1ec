package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIndicator_CyclesDotSuffix(t *testing.T) {
	msgr := &mockMessenger{}
	svc := newTestService(t, &mockPredictor{}, &mockCompleter{}, msgr)
	svc.indicatorInterval = 2 * time.Millisecond

	ind := svc.startIndicator(context.Background(), "conv-1", "status-1", "🤖 GotionGPT is analyzing")
	require.Eventually(t, func() bool {
		return len(msgr.updates("status-1")) >= 5
	}, 2*time.Second, time.Millisecond)
	ind.stop()

	updates := msgr.updates("status-1")
	require.Equal(t, "🤖 GotionGPT is analyzing", updates[0])
	require.Equal(t, "🤖 GotionGPT is analyzing.", updates[1])
	require.Equal(t, "🤖 GotionGPT is analyzing..", updates[2])
	require.Equal(t, "🤖 GotionGPT is analyzing...", updates[3])
	require.Equal(t, "🤖 GotionGPT is analyzing", updates[4])
}

func TestIndicator_StopHaltsUpdates(t *testing.T) {
	msgr := &mockMessenger{}
	svc := newTestService(t, &mockPredictor{}, &mockCompleter{}, msgr)
	svc.indicatorInterval = time.Millisecond

	ind := svc.startIndicator(context.Background(), "conv-1", "status-1", "base")
	require.Eventually(t, func() bool {
		return len(msgr.updates("status-1")) >= 2
	}, 2*time.Second, time.Millisecond)
	ind.stop()

	frozen := len(msgr.updates("status-1"))
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, frozen, len(msgr.updates("status-1")))
}

func TestIndicator_StopIsIdempotent(t *testing.T) {
	msgr := &mockMessenger{}
	svc := newTestService(t, &mockPredictor{}, &mockCompleter{}, msgr)

	ind := svc.startIndicator(context.Background(), "conv-1", "status-1", "base")
	ind.stop()
	ind.stop()
}

func TestIndicator_IgnoresUpdateFailures(t *testing.T) {
	msgr := &mockMessenger{updateErr: context.Canceled}
	svc := newTestService(t, &mockPredictor{}, &mockCompleter{}, msgr)
	svc.indicatorInterval = time.Millisecond

	ind := svc.startIndicator(context.Background(), "conv-1", "status-1", "base")
	// The loop must keep running (and stay stoppable) despite errors.
	time.Sleep(5 * time.Millisecond)
	ind.stop()
}
