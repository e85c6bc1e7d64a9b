package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	name  string
	err   error
	calls int
}

func (s *stubSender) Name() string { return s.name }

func (s *stubSender) Send(ctx context.Context, msg *Message) (*Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &Result{MessageID: "id", Transport: s.name, SentAt: time.Now()}, nil
}

func (s *stubSender) Verify(context.Context) error { return s.err }

func TestValidateCollectsProblems(t *testing.T) {
	err := Validate(&Message{})
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{
		"Recipient (to) is required",
		"Subject is required",
		"Email content (html or text) is required",
	}, verr.Problems)
	assert.True(t, strings.HasPrefix(err.Error(), "Email validation failed: "))
}

func TestValidateAttachmentLimit(t *testing.T) {
	msg := &Message{
		To:      []string{"parent@example.com"},
		Subject: "hi",
		Text:    "body",
		Attachments: []Attachment{
			{Filename: "a.bin", Content: make([]byte, MaxAttachmentBytes)},
			{Filename: "b.bin", Content: []byte{1}},
		},
	}
	err := Validate(msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Total attachments size exceeds 10MB limit")

	msg.Attachments = msg.Attachments[:1]
	assert.NoError(t, Validate(msg))
}

func TestRouterFallsBackToDefault(t *testing.T) {
	smtp := &stubSender{name: "smtp"}
	console := &stubSender{name: "console"}
	router, err := NewRouter("console", smtp, console)
	require.NoError(t, err)

	assert.Same(t, smtp, router.Resolve("SMTP"))
	assert.Same(t, console, router.Resolve("gmail"))
	assert.Same(t, console, router.Resolve(""))
	assert.Equal(t, []string{"console", "smtp"}, router.Names())

	_, err = NewRouter("sendgrid", smtp)
	assert.Error(t, err)
}

func TestMemoryQuotaResetsDaily(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQuota(2)
	day := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return day }

	require.NoError(t, q.Reserve(ctx))
	require.NoError(t, q.Reserve(ctx))

	err := q.Reserve(ctx)
	var qerr *QuotaExceededError
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, "Daily email limit reached (2)", err.Error())
	used, _, err := q.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, used)

	require.NoError(t, q.Release(ctx))
	require.NoError(t, q.Reserve(ctx))

	day = day.Add(24 * time.Hour)
	used, limit, err := q.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, used)
	assert.Equal(t, 2, limit)
	assert.NoError(t, q.Reserve(ctx))
}

func TestMemoryQuotaUsesUTCDay(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQuota(5)
	eastern := time.FixedZone("EST", -5*60*60)
	now := time.Date(2024, 3, 15, 18, 0, 0, 0, eastern)
	q.now = func() time.Time { return now }
	require.NoError(t, q.Reserve(ctx))

	// Same local evening, but past midnight UTC.
	now = time.Date(2024, 3, 15, 20, 0, 0, 0, eastern)
	used, _, err := q.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, used)
	require.NoError(t, q.Reserve(ctx))

	// Past local midnight, still the same UTC day.
	now = time.Date(2024, 3, 16, 1, 0, 0, 0, eastern)
	used, _, err = q.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, used)
}

func TestMemoryQuotaConcurrentReserve(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQuota(10)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if q.Reserve(ctx) == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	used, _, err := q.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, used)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	next := &stubSender{name: "smtp", err: errors.New("relay down")}
	var states []string
	b := WithBreaker(next, BreakerConfig{
		FailureThreshold: 2,
		Timeout:          time.Minute,
		OnStateChange:    func(_, state string) { states = append(states, state) },
	})
	msg := &Message{To: []string{"a@example.com"}, Subject: "s", Text: "t"}

	_, err := b.Send(context.Background(), msg)
	require.Error(t, err)
	_, err = b.Send(context.Background(), msg)
	require.Error(t, err)
	assert.Equal(t, "open", b.State())

	_, err = b.Send(context.Background(), msg)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, next.calls)
	assert.Equal(t, []string{"open"}, states)
}

func TestBreakerIgnoresValidationErrors(t *testing.T) {
	next := &stubSender{name: "smtp", err: &ValidationError{Problems: []string{"bad"}}}
	b := WithBreaker(next, BreakerConfig{FailureThreshold: 1})
	for i := 0; i < 3; i++ {
		_, err := b.Send(context.Background(), &Message{})
		require.Error(t, err)
	}
	assert.Equal(t, "closed", b.State())
}

func TestSendGridPrepareOrdersContent(t *testing.T) {
	s, err := NewSendGridSender("key", "")
	require.NoError(t, err)
	m := s.prepare(&Message{
		From:        Address{Name: "School", Email: "school@example.com"},
		To:          []string{"parent@example.com"},
		Subject:     "Daily Update",
		HTML:        "<p>hi</p>",
		Text:        "hi",
		Attachments: []Attachment{{Filename: "r.pdf", ContentType: "application/pdf", Content: []byte("pdf")}},
	})

	body := sgmail.GetRequestBody(m)
	var decoded struct {
		Content []struct {
			Type string `json:"type"`
		} `json:"content"`
		Attachments []struct {
			Content string `json:"content"`
		} `json:"attachments"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Len(t, decoded.Content, 2)
	assert.Equal(t, "text/plain", decoded.Content[0].Type)
	assert.Equal(t, "text/html", decoded.Content[1].Type)
	assert.Equal(t, "cGRm", decoded.Attachments[0].Content)
}

func TestSMTPBuildIncludesHeadersAndAlternatives(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com"})
	require.NoError(t, err)

	msg := &Message{
		From:    Address{Name: "School", Email: "school@example.org"},
		To:      []string{"parent@example.com"},
		Subject: "Daily Update",
		HTML:    "<p>hi</p>",
		Text:    "hi",
	}
	id := s.messageID(msg)
	assert.True(t, strings.HasSuffix(id, "@example.org>"))

	var buf bytes.Buffer
	_, err = s.build(msg, id).WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "Subject: Daily Update")
	assert.Contains(t, raw, "Message-ID: "+id)
	assert.Contains(t, raw, "multipart/alternative")
}

func TestConsoleSenderAlwaysSucceeds(t *testing.T) {
	res, err := NewConsoleSender(nil).Send(context.Background(), &Message{To: []string{"a@example.com"}})
	require.NoError(t, err)
	assert.Equal(t, "console", res.Transport)
	assert.NotEmpty(t, res.MessageID)
}
