package mailer

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while a transport's breaker refuses traffic.
var ErrCircuitOpen = errors.New("email transport circuit open")

// BreakerConfig tunes a transport circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold uint32
	// Timeout is how long the circuit stays open before probing again.
	Timeout     time.Duration
	MaxRequests uint32
	// OnStateChange is invoked with the transport name and the new state.
	OnStateChange func(transport, state string)
	Logger        *zap.Logger
}

// BreakerSender guards another Sender with a circuit breaker so a failing
// relay is not hammered by batch sends.
type BreakerSender struct {
	next Sender
	cb   *gobreaker.CircuitBreaker[*Result]
}

// WithBreaker wraps next in a circuit breaker.
func WithBreaker(next Sender, cfg BreakerConfig) *BreakerSender {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// Invalid messages say nothing about transport health.
		IsSuccessful: func(err error) bool {
			var verr *ValidationError
			return err == nil || errors.As(err, &verr) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("email transport breaker state changed",
				zap.String("transport", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, to.String())
			}
		},
	}

	return &BreakerSender{next: next, cb: gobreaker.NewCircuitBreaker[*Result](settings)}
}

// Name implements Sender.
func (b *BreakerSender) Name() string { return b.next.Name() }

// Send implements Sender.
func (b *BreakerSender) Send(ctx context.Context, msg *Message) (*Result, error) {
	res, err := b.cb.Execute(func() (*Result, error) {
		return b.next.Send(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return res, err
}

// Verify bypasses the breaker so status checks always reach the transport.
func (b *BreakerSender) Verify(ctx context.Context) error {
	return b.next.Verify(ctx)
}

// State returns "closed", "half-open" or "open".
func (b *BreakerSender) State() string {
	return b.cb.State().String()
}
