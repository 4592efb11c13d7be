package health

import (
	"context"
	"errors"
	"fmt"
)

// VoiceStatusClient reports whether the remote exchange can synthesize
// speech. Implemented by the exchange client.
type VoiceStatusClient interface {
	VoiceStatus(ctx context.Context) (bool, error)
}

// CaptureState reports whether a capture session is currently held.
// Implemented by the capture manager.
type CaptureState interface {
	Active() bool
}

// ExchangeChecker probes the exchange's voice status endpoint. The check
// fails when the exchange is unreachable or rejects the request.
func ExchangeChecker(c VoiceStatusClient) Checker {
	return Checker{
		Name: "exchange",
		Check: func(ctx context.Context) error {
			if _, err := c.VoiceStatus(ctx); err != nil {
				return fmt.Errorf("voice status probe: %w", err)
			}
			return nil
		},
	}
}

// VoiceChecker fails when the exchange reports voice synthesis as
// unavailable. Separate from [ExchangeChecker] so that reachability and
// degraded synthesis show up as distinct readiness results.
func VoiceChecker(c VoiceStatusClient) Checker {
	return Checker{
		Name: "voice",
		Check: func(ctx context.Context) error {
			available, err := c.VoiceStatus(ctx)
			if err != nil {
				return fmt.Errorf("voice status probe: %w", err)
			}
			if !available {
				return errors.New("voice synthesis unavailable")
			}
			return nil
		},
	}
}

// CaptureChecker fails while no capture session is held, which covers both
// denied microphone permission and a lost device.
func CaptureChecker(s CaptureState) Checker {
	return Checker{
		Name: "capture",
		Check: func(_ context.Context) error {
			if !s.Active() {
				return errors.New("no capture session")
			}
			return nil
		},
	}
}
