package panel

import (
	"context"
	"time"

	"github.com/sebakerckhof/ats-bridge/internal/ats"
)

// delayForAttempt returns the backoff delay before retry attempt i
// (zero-based). Past the end of the schedule the last delay repeats
// indefinitely.
func (c *Coordinator) delayForAttempt(i int) time.Duration {
	if i >= len(c.reconnectDelays) {
		return c.reconnectDelays[len(c.reconnectDelays)-1]
	}
	return c.reconnectDelays[i]
}

// handleConnectionLost is invoked by the session client when an established
// connection drops. It marks the session gone, notifies global listeners of
// the flip, and schedules a reconnection attempt. Notifications from a
// client that is no longer the current session are ignored.
func (c *Coordinator) handleConnectionLost(from ats.Client, err error) {
	c.mu.Lock()
	current := c.connected && c.client == from
	if current {
		c.connected = false
	}
	c.mu.Unlock()

	if !current {
		return
	}

	c.logger.Warn("panel connection lost", "error", err)

	// Consumers watching the session state learn about the outage through
	// the same fan-out that carries entity changes.
	c.invoke(c.listeners.snapshotGlobal())

	c.scheduleReconnect()
}

// scheduleReconnect arms a single reconnection task. At most one task is
// ever outstanding: if one is already pending or running, the call is a
// no-op. The attempt counter is incremented here, before the backoff sleep,
// so the delay for attempt N is chosen by the N-1 failures before it.
func (c *Coordinator) scheduleReconnect() {
	c.mu.Lock()
	if c.closed || c.reconnectPending {
		c.mu.Unlock()
		return
	}
	c.reconnectPending = true
	cancel := make(chan struct{})
	c.reconnectCancel = cancel

	delay := c.delayForAttempt(c.reconnectAttempts)
	c.reconnectAttempts++
	attempt := c.reconnectAttempts
	c.mu.Unlock()

	if attempt >= c.maxFastAttempts {
		c.logger.Warn("reconnection attempts exhausted fast schedule, continuing at max delay",
			"attempt", attempt, "delay", delay)
	} else {
		c.logger.Info("scheduling reconnection", "attempt", attempt, "delay", delay)
	}

	c.wg.Add(1)
	go c.reconnectTask(delay, attempt, cancel)
}

// reconnectTask sleeps out the backoff delay, then runs one reconnection
// attempt. The sleep aborts immediately when the task is cancelled (by
// Connect, Disconnect, or Close).
func (c *Coordinator) reconnectTask(delay time.Duration, attempt int, cancel chan struct{}) {
	defer c.wg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-cancel:
		return
	case <-c.done:
		return
	}

	// A Connect or Disconnect may have cancelled us between the timer
	// firing and this check.
	c.mu.Lock()
	if c.reconnectCancel != cancel {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	err := c.attemptReconnect()
	if err == nil {
		c.reconnectsTotal.Add(1)
	}

	// Clear the pending flag only if this task is still the current one; a
	// newer task may have been armed if the user reconnected manually while
	// this attempt was in flight.
	c.mu.Lock()
	if c.reconnectCancel == cancel {
		c.reconnectPending = false
		c.reconnectCancel = nil
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("reconnection attempt failed", "attempt", attempt, "error", err)
		c.scheduleReconnect()
		return
	}

	c.logger.Info("reconnected to panel", "attempts", attempt)
}

// attemptReconnect tears down whatever is left of the old session and opens
// a fresh one. On success the full state is re-fetched, the store is
// repopulated wholesale, and the attempt counter resets to zero.
func (c *Coordinator) attemptReconnect() error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.isClosed() {
		return ErrClosed
	}
	if c.IsConnected() {
		// The user reconnected manually while we were sleeping.
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), reconnectAttemptTimeout)
	defer cancel()

	c.disconnect(ctx)
	return c.connect(ctx)
}

// cancelPendingReconnect aborts the pending reconnection task, if any.
// Caller holds lifecycleMu.
func (c *Coordinator) cancelPendingReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.reconnectPending {
		return
	}
	if c.reconnectCancel != nil {
		close(c.reconnectCancel)
		c.reconnectCancel = nil
	}
	c.reconnectPending = false
}
