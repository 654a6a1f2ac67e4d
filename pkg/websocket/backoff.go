package websocket

import (
	"fmt"
	"math"
	"time"
)

// DefaultBackoff matches the widget defaults: 1s base, doubling, five attempts.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:        time.Second,
		Multiplier:  2.0,
		MaxAttempts: 5,
	}
}

// Validate reports whether the policy can drive a reconnect loop.
func (b Backoff) Validate() error {
	if b.Base <= 0 {
		return fmt.Errorf("%w: backoff base must be > 0", ErrBadConfig)
	}
	if b.Multiplier < 1 {
		return fmt.Errorf("%w: backoff multiplier must be >= 1", ErrBadConfig)
	}
	if b.MaxAttempts < 0 {
		return fmt.Errorf("%w: backoff max attempts must be >= 0", ErrBadConfig)
	}
	if b.Max < 0 {
		return fmt.Errorf("%w: backoff max must be >= 0", ErrBadConfig)
	}
	return nil
}

// Delay returns the wait before the given attempt (1-based):
// Base * Multiplier^(attempt-1), capped at Max when Max is set.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	wait := float64(b.Base) * math.Pow(b.Multiplier, float64(attempt-1))
	if b.Max > 0 && wait > float64(b.Max) {
		return b.Max
	}
	if wait >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(wait)
}

// ReconnectLabel renders the countdown shown while waiting for a retry.
func ReconnectLabel(delay time.Duration) string {
	secs := int64(math.Ceil(delay.Seconds()))
	return fmt.Sprintf("Reconnecting in %ds...", secs)
}
