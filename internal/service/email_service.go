package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/daily-update-api/pkg/errors"
	"github.com/noah-isme/daily-update-api/pkg/mailer"
)

// Transport connectivity verdicts reported by Status.
const (
	TransportNotConfigured    = "not_configured"
	TransportOperational      = "operational"
	TransportConnectionFailed = "connection_failed"
)

const defaultMaxRetries = 3

// EmailServiceConfig tunes sending.
type EmailServiceConfig struct {
	From         mailer.Address
	MaxRetries   int
	RetryBackoff time.Duration
	// SendInterval is the minimum spacing between messages of a batch.
	SendInterval time.Duration
}

// BatchProgress is reported after every message of a batch.
type BatchProgress struct {
	Total      int `json:"total"`
	Current    int `json:"current"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// BatchFailure records a message that exhausted its attempts.
type BatchFailure struct {
	Recipient string    `json:"recipient"`
	Error     string    `json:"error"`
	Attempts  int       `json:"attempts"`
	Timestamp time.Time `json:"timestamp"`
}

// SendOutcome is the result of one message of a batch, in input order.
type SendOutcome struct {
	Recipient string         `json:"recipient"`
	Result    *mailer.Result `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Attempts  int            `json:"attempts"`
}

// Sent reports whether the message was accepted by the transport.
func (o SendOutcome) Sent() bool {
	return o.Result != nil
}

// BatchResult summarises a batch send.
type BatchResult struct {
	Total      int            `json:"total"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	Outcomes   []SendOutcome  `json:"outcomes"`
	Failures   []BatchFailure `json:"failures"`
}

// TransportStatus describes one transport's readiness.
type TransportStatus struct {
	Transport    string `json:"transport"`
	Default      bool   `json:"default"`
	Configured   bool   `json:"configured"`
	Status       string `json:"status"`
	BreakerState string `json:"breakerState,omitempty"`
	DailyLimit   int    `json:"dailyLimit"`
	SentToday    int    `json:"sentToday"`
	Remaining    int    `json:"remaining"`
	Error        string `json:"error,omitempty"`
}

type breakerStater interface {
	State() string
}

// EmailService validates, meters and delivers messages through the
// configured transports.
type EmailService struct {
	router  *mailer.Router
	quota   mailer.Quota
	metrics *MetricsService
	cfg     EmailServiceConfig
	logger  *zap.Logger
	wait    func(ctx context.Context, d time.Duration) error
}

// NewEmailService constructs an EmailService. quota and metrics may be nil.
func NewEmailService(router *mailer.Router, quota mailer.Quota, metrics *MetricsService, cfg EmailServiceConfig, logger *zap.Logger) *EmailService {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailService{router: router, quota: quota, metrics: metrics, cfg: cfg, logger: logger, wait: sleepContext}
}

// DefaultTransport returns the name of the fallback transport.
func (s *EmailService) DefaultTransport() string {
	return s.router.Default()
}

// ValidateMessage checks recipients, subject, body and attachment size.
func (s *EmailService) ValidateMessage(msg *mailer.Message) error {
	if err := mailer.Validate(msg); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	return nil
}

// Send delivers one message with a single attempt.
func (s *EmailService) Send(ctx context.Context, transport string, msg *mailer.Message) (*mailer.Result, error) {
	sender := s.router.Resolve(transport)
	res, err := s.attempt(ctx, sender, msg)
	s.metrics.RecordEmail(sender.Name(), err == nil, 1)
	if err != nil {
		s.logger.Warn("email send failed", zap.String("transport", sender.Name()), zap.String("to", msg.Recipient()), zap.Error(err))
		return nil, err
	}
	return res, nil
}

// SendWithRetry delivers one message, retrying transport failures up to
// maxRetries attempts in total. It returns the attempts used.
func (s *EmailService) SendWithRetry(ctx context.Context, transport string, msg *mailer.Message, maxRetries int) (*mailer.Result, int, error) {
	sender := s.router.Resolve(transport)
	res, attempts, err := s.sendWithRetry(ctx, sender, msg, maxRetries)
	s.metrics.RecordEmail(sender.Name(), err == nil, attempts)
	return res, attempts, err
}

// SendBatch delivers msgs in order, paced by SendInterval. Failures are
// collected rather than aborting the batch; only a cancelled context stops it
// early. onProgress may be nil.
func (s *EmailService) SendBatch(ctx context.Context, transport string, msgs []*mailer.Message, onProgress func(BatchProgress), maxRetries int) (*BatchResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveEmailBatch(time.Since(start)) }()

	sender := s.router.Resolve(transport)
	limiter := rate.NewLimiter(rate.Inf, 1)
	if s.cfg.SendInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(s.cfg.SendInterval), 1)
	}

	result := &BatchResult{
		Total:    len(msgs),
		Outcomes: make([]SendOutcome, 0, len(msgs)),
		Failures: make([]BatchFailure, 0),
	}
	for i, msg := range msgs {
		if err := limiter.Wait(ctx); err != nil {
			return result, err
		}
		res, attempts, err := s.sendWithRetry(ctx, sender, msg, maxRetries)
		s.metrics.RecordEmail(sender.Name(), err == nil, attempts)

		outcome := SendOutcome{Recipient: msg.Recipient(), Result: res, Attempts: attempts}
		if err != nil {
			outcome.Error = err.Error()
			result.Failed++
			result.Failures = append(result.Failures, BatchFailure{
				Recipient: msg.Recipient(),
				Error:     err.Error(),
				Attempts:  attempts,
				Timestamp: time.Now().UTC(),
			})
		} else {
			result.Successful++
		}
		result.Outcomes = append(result.Outcomes, outcome)

		if onProgress != nil {
			onProgress(BatchProgress{Total: len(msgs), Current: i + 1, Successful: result.Successful, Failed: result.Failed})
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
	}

	s.logger.Info("email batch finished",
		zap.String("transport", sender.Name()),
		zap.Int("total", result.Total),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed),
		zap.Duration("took", time.Since(start)),
	)
	return result, nil
}

// Status reports configuration, breaker state, quota and connectivity of a
// transport. An empty name means the default transport.
func (s *EmailService) Status(ctx context.Context, transport string) TransportStatus {
	name := strings.ToLower(strings.TrimSpace(transport))
	if name == "" {
		name = s.router.Default()
	}
	status := TransportStatus{Transport: name, Default: name == s.router.Default(), Status: TransportNotConfigured}

	if s.quota != nil {
		used, limit, err := s.quota.Usage(ctx)
		if err != nil {
			s.logger.Warn("read email quota failed", zap.Error(err))
		}
		status.SentToday, status.DailyLimit = used, limit
		status.Remaining = max(limit-used, 0)
		s.metrics.SetQuotaUsed(used)
	}

	sender, ok := s.router.Lookup(name)
	if !ok {
		return status
	}
	status.Configured = true
	if b, ok := sender.(breakerStater); ok {
		status.BreakerState = b.State()
	}
	if err := sender.Verify(ctx); err != nil {
		status.Status = TransportConnectionFailed
		status.Error = err.Error()
		return status
	}
	status.Status = TransportOperational
	return status
}

// Statuses reports every registered transport.
func (s *EmailService) Statuses(ctx context.Context) []TransportStatus {
	names := s.router.Names()
	out := make([]TransportStatus, 0, len(names))
	for _, name := range names {
		out = append(out, s.Status(ctx, name))
	}
	return out
}

func (s *EmailService) sendWithRetry(ctx context.Context, sender mailer.Sender, msg *mailer.Message, maxRetries int) (*mailer.Result, int, error) {
	if maxRetries <= 0 {
		maxRetries = s.cfg.MaxRetries
	}
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		res, err := s.attempt(ctx, sender, msg)
		if err == nil {
			return res, attempt, nil
		}
		lastErr = err
		if !retryable(err) || attempt == maxRetries {
			return nil, attempt, err
		}
		backoff := s.cfg.RetryBackoff * time.Duration(1<<attempt)
		s.logger.Debug("retrying email",
			zap.String("to", msg.Recipient()),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if err := s.wait(ctx, backoff); err != nil {
			return nil, attempt, err
		}
	}
	return nil, maxRetries, lastErr
}

func (s *EmailService) attempt(ctx context.Context, sender mailer.Sender, msg *mailer.Message) (*mailer.Result, error) {
	if msg != nil && msg.From.Email == "" {
		filled := *msg
		filled.From = s.cfg.From
		msg = &filled
	}
	if err := s.ValidateMessage(msg); err != nil {
		return nil, err
	}
	if s.quota != nil {
		if err := s.quota.Reserve(ctx); err != nil {
			var exceeded *mailer.QuotaExceededError
			if errors.As(err, &exceeded) {
				return nil, appErrors.Clone(appErrors.ErrDailyLimit, exceeded.Error())
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email quota")
		}
	}

	res, err := sender.Send(ctx, msg)
	if err != nil {
		if s.quota != nil {
			if err := s.quota.Release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("release email quota failed", zap.Error(err))
			}
		}
		if errors.Is(err, mailer.ErrCircuitOpen) {
			return nil, appErrors.Wrap(err, appErrors.ErrTransportUnavailable.Code, appErrors.ErrTransportUnavailable.Status,
				fmt.Sprintf("email transport %s is unavailable", sender.Name()))
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrDeliveryFailed.Code, appErrors.ErrDeliveryFailed.Status, "email delivery failed")
	}
	return res, nil
}

// retryable is false for failures another attempt cannot fix.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	for _, code := range []string{appErrors.ErrValidation.Code, appErrors.ErrDailyLimit.Code, appErrors.ErrTransportUnavailable.Code} {
		if appErrors.HasCode(err, code) {
			return false
		}
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
