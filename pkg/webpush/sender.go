package webpush

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/pushkit/pkg/vapid"
)

// Result classifies one delivery attempt.
type Result string

const (
	// ResultSent means the push service accepted the message (2xx).
	ResultSent Result = "sent"
	// ResultGone means the subscription no longer exists (404 or 410) and
	// must be deleted.
	ResultGone Result = "gone"
	// ResultFailed is any other outcome: non-2xx status, network error or
	// timeout. The subscription is kept.
	ResultFailed Result = "failed"
	// ResultInvalid means the stored subscription data is malformed and the
	// message was never sent.
	ResultInvalid Result = "invalid"
)

// Urgency is the RFC 8030 Urgency header value.
type Urgency string

const (
	UrgencyVeryLow Urgency = "very-low"
	UrgencyLow     Urgency = "low"
	UrgencyNormal  Urgency = "normal"
	UrgencyHigh    Urgency = "high"
)

// Valid reports whether u is one of the RFC 8030 values.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyVeryLow, UrgencyLow, UrgencyNormal, UrgencyHigh:
		return true
	}
	return false
}

const (
	// DefaultTTL is how long the push service should retain an undelivered message.
	DefaultTTL = 24 * time.Hour
	// DefaultTimeout bounds one HTTP request to a push service.
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 64 * 1024
)

// Delivery describes one delivery attempt.
type Delivery struct {
	Result     Result
	StatusCode int
	Duration   time.Duration
	Err        error
}

// TokenSigner produces the Authorization header value for an endpoint.
// *vapid.Signer implements it.
type TokenSigner interface {
	Authorization(endpoint string) (string, error)
}

// Sender performs single delivery attempts to push services.
// Zero value is not usable; use NewSender.
type Sender struct {
	signer  TokenSigner
	client  *http.Client
	timeout time.Duration
	ttl     time.Duration
	urgency Urgency
}

// SenderOption configures a Sender.
type SenderOption func(*Sender)

// WithHTTPClient sets a custom HTTP client, e.g. for proxies or tests.
func WithHTTPClient(client *http.Client) SenderOption {
	return func(s *Sender) {
		if client != nil {
			s.client = client
		}
	}
}

// WithTimeout sets the per-request timeout. Default is 10 seconds.
func WithTimeout(timeout time.Duration) SenderOption {
	return func(s *Sender) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithTTL sets the TTL header. Default is 24 hours; sub-second values are
// truncated to whole seconds.
func WithTTL(ttl time.Duration) SenderOption {
	return func(s *Sender) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

// WithUrgency sets the Urgency header. Invalid values are ignored.
func WithUrgency(u Urgency) SenderOption {
	return func(s *Sender) {
		if u.Valid() {
			s.urgency = u
		}
	}
}

// NewSender creates a sender that authenticates requests with signer.
func NewSender(signer TokenSigner, opts ...SenderOption) *Sender {
	s := &Sender{
		signer:  signer,
		timeout: DefaultTimeout,
		ttl:     DefaultTTL,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			// A redirect from a push service is a failure, not something to follow.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send POSTs an aes128gcm body to endpoint and classifies the outcome. It
// never retries.
func (s *Sender) Send(ctx context.Context, endpoint string, body []byte) Delivery {
	start := time.Now()

	auth, err := s.signer.Authorization(endpoint)
	switch {
	case errors.Is(err, vapid.ErrInvalidEndpoint):
		// The endpoint has no usable origin; a problem of this subscription only.
		return Delivery{Result: ResultInvalid, Duration: time.Since(start), Err: errors.Join(ErrInvalidEndpoint, err)}
	case err != nil:
		return Delivery{Result: ResultFailed, Duration: time.Since(start), Err: errors.Join(ErrSigning, err)}
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Delivery{Result: ResultInvalid, Duration: time.Since(start), Err: errors.Join(ErrInvalidEndpoint, err)}
	}

	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Encoding", "aes128gcm")
	req.Header.Set("Authorization", auth)
	req.Header.Set("TTL", strconv.FormatInt(int64(s.ttl/time.Second), 10))
	if s.urgency != "" {
		req.Header.Set("Urgency", string(s.urgency))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		d := Delivery{Result: ResultFailed, Duration: time.Since(start)}
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			d.Err = fmt.Errorf("%w: %w", ErrTimeout, err)
		} else {
			d.Err = fmt.Errorf("%w: %w", ErrTransport, err)
		}
		return d
	}
	defer func() { _ = resp.Body.Close() }()

	d := Delivery{
		Result:     Classify(resp.StatusCode),
		StatusCode: resp.StatusCode,
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	d.Duration = time.Since(start)

	switch d.Result {
	case ResultGone:
		d.Err = fmt.Errorf("%w: status %d", ErrSubscriptionGone, resp.StatusCode)
	case ResultFailed:
		d.Err = fmt.Errorf("%w: status %d%s", ErrRelayRejected, resp.StatusCode, sanitizeBody(respBody))
	}
	return d
}

// Classify maps a push service status code to a Result.
func Classify(statusCode int) Result {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return ResultSent
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		return ResultGone
	default:
		return ResultFailed
	}
}

// sanitizeBody keeps push service error text loggable: single line, bounded.
func sanitizeBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	s := strings.Join(strings.Fields(string(body)), " ")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return ": " + s
}
