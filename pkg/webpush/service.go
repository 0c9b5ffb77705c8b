package webpush

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/pushkit/pkg/ece"
	"github.com/dmitrymomot/pushkit/pkg/logger"
	"github.com/dmitrymomot/pushkit/pkg/vapid"
)

// DefaultConcurrency bounds parallel deliveries within one Deliver call.
const DefaultConcurrency = 8

// Recipient selects the subscriptions a message goes to.
type Recipient struct {
	userID string
	all    bool
}

// ToUser addresses every device of one user.
func ToUser(userID string) Recipient {
	return Recipient{userID: userID}
}

// ToAll addresses every stored subscription.
func ToAll() Recipient {
	return Recipient{all: true}
}

// IsBroadcast reports whether r addresses every subscription.
func (r Recipient) IsBroadcast() bool { return r.all }

// UserID returns the addressed user, empty for broadcasts.
func (r Recipient) UserID() string { return r.userID }

// Summary aggregates the outcome of one Deliver call.
// Total = Sent + Cleaned + Failed + Invalid, unless a gone subscription could
// not be deleted, in which case it is counted as Failed.
type Summary struct {
	Sent    int `json:"sent"`
	Total   int `json:"total"`
	Cleaned int `json:"cleaned"`
	Failed  int `json:"failed"`
	Invalid int `json:"invalid"`
}

// Deliverer delivers a message to a set of subscriptions.
type Deliverer interface {
	Deliver(ctx context.Context, to Recipient, msg Message) (Summary, error)
}

// Service fans messages out to subscriptions: it encrypts per recipient,
// signs per push service origin, sends, and deletes subscriptions the push
// service reports as gone.
type Service struct {
	store       Store
	signer      *vapid.Signer
	tokens      TokenSigner
	sender      *Sender
	concurrency int
	metrics     *Metrics
	logger      *slog.Logger

	signerOpts []vapid.SignerOption
	senderOpts []SenderOption
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the Service.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConcurrency bounds the number of subscriptions processed in parallel.
func WithConcurrency(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMetrics records delivery metrics.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTokenSigner replaces the VAPID signer used to authorize requests.
// PublicKey still reports the configured key pair.
func WithTokenSigner(ts TokenSigner) ServiceOption {
	return func(s *Service) {
		if ts != nil {
			s.tokens = ts
		}
	}
}

// WithSignerOptions passes options to the VAPID signer.
func WithSignerOptions(opts ...vapid.SignerOption) ServiceOption {
	return func(s *Service) {
		s.signerOpts = append(s.signerOpts, opts...)
	}
}

// WithSenderOptions passes options to the HTTP sender.
func WithSenderOptions(opts ...SenderOption) ServiceOption {
	return func(s *Service) {
		s.senderOpts = append(s.senderOpts, opts...)
	}
}

// NewService creates a Service. A missing store, missing keys or an invalid
// subject are configuration errors and fail construction.
func NewService(store Store, keys *vapid.KeyPair, subject string, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, ErrMissingStore
	}
	if keys == nil {
		return nil, ErrMissingKeys
	}

	s := &Service{
		store:       store,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	signer, err := vapid.NewSigner(keys, subject, s.signerOpts...)
	if err != nil {
		return nil, err
	}
	s.signer = signer
	if s.tokens == nil {
		s.tokens = signer
	}
	s.sender = NewSender(s.tokens, s.senderOpts...)
	s.logger = s.logger.With(logger.Component("webpush"))

	return s, nil
}

// PublicKey returns the base64url VAPID public key that clients pass as
// applicationServerKey when subscribing.
func (s *Service) PublicKey() string {
	return s.signer.PublicKey()
}

// Subscribe validates a subscription and stores it.
func (s *Service) Subscribe(ctx context.Context, sub Subscription) error {
	if sub.UserID == "" {
		return errors.Join(ErrInvalidSubscription, ErrInvalidRecipient)
	}
	if err := sub.Validate(); err != nil {
		return err
	}
	if err := s.store.Save(ctx, sub); err != nil {
		return errors.Join(ErrStore, err)
	}
	return nil
}

// Unsubscribe removes a subscription by endpoint.
func (s *Service) Unsubscribe(ctx context.Context, endpoint string) error {
	if err := s.store.Delete(ctx, endpoint); err != nil {
		return errors.Join(ErrStore, err)
	}
	return nil
}

// Deliver sends msg to every subscription selected by to. Per-subscription
// problems are counted in the Summary; only batch-level failures (store
// errors, oversized message, signing failure) are returned. A signing
// failure stops the batch; the Summary still counts what already happened.
// A recipient without subscriptions yields a zero Summary and no error.
func (s *Service) Deliver(ctx context.Context, to Recipient, msg Message) (Summary, error) {
	if !to.all && to.userID == "" {
		return Summary{}, ErrInvalidRecipient
	}

	payload, err := msg.Marshal()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to encode message: %w", err)
	}
	if len(payload) > ece.MaxPlaintextSize {
		return Summary{}, ErrPayloadTooLarge
	}

	subs, err := s.resolve(ctx, to)
	if err != nil {
		return Summary{}, errors.Join(ErrStore, err)
	}

	summary := Summary{Total: len(subs)}
	if len(subs) == 0 {
		return summary, nil
	}

	ctx = logger.WithBatchID(ctx, uuid.NewString())
	start := time.Now()

	outcomes := make([]outcome, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, sub := range subs {
		g.Go(func() error {
			outcomes[i] = s.deliverOne(gctx, sub, payload)
			// Signing failures are configuration problems; stop the batch.
			if errors.Is(outcomes[i].Err, ErrSigning) {
				return outcomes[i].Err
			}
			return nil
		})
	}

	waitErr := g.Wait()
	summary.fold(outcomes)

	if waitErr != nil {
		s.logger.ErrorContext(ctx, "push batch aborted",
			logger.Count("total", summary.Total),
			logger.Count("sent", summary.Sent),
			logger.Count("cleaned", summary.Cleaned),
			logger.Error(waitErr),
		)
		return summary, waitErr
	}

	s.logger.InfoContext(ctx, "push batch delivered",
		slog.Bool("broadcast", to.all),
		logger.UserID(to.userID),
		logger.Count("total", summary.Total),
		logger.Count("sent", summary.Sent),
		logger.Count("cleaned", summary.Cleaned),
		logger.Count("failed", summary.Failed),
		logger.Count("invalid", summary.Invalid),
		logger.Duration(time.Since(start)),
	)

	return summary, nil
}

type outcome struct {
	Delivery
	cleaned bool
}

// fold counts outcomes into s. Subscriptions skipped after an abort carry a
// cancelled context error and are counted as Failed.
func (s *Summary) fold(outcomes []outcome) {
	for _, o := range outcomes {
		switch {
		case o.Result == ResultSent:
			s.Sent++
		case o.Result == ResultGone && o.cleaned:
			s.Cleaned++
		case o.Result == ResultInvalid:
			s.Invalid++
		default:
			s.Failed++
		}
	}
}

func (s *Service) resolve(ctx context.Context, to Recipient) ([]Subscription, error) {
	if to.all {
		return s.store.ListAll(ctx)
	}
	return s.store.ListFor(ctx, to.userID)
}

// deliverOne runs encrypt, sign and send for one subscription. The ephemeral
// key and salt generated by ece.Encrypt are used for this request only.
func (s *Service) deliverOne(ctx context.Context, sub Subscription, payload []byte) outcome {
	log := s.logger.With(logger.Endpoint(sub.Endpoint), logger.UserID(sub.UserID))

	if err := ctx.Err(); err != nil {
		return outcome{Delivery: Delivery{Result: ResultFailed, Err: err}}
	}

	keys, err := sub.DecodeKeys()
	if err != nil {
		log.WarnContext(ctx, "skipping malformed push subscription", logger.Error(err))
		s.metrics.observe(ResultInvalid, 0)
		return outcome{Delivery: Delivery{Result: ResultInvalid, Err: err}}
	}

	body, err := ece.Encrypt(payload, keys.P256dh, keys.Auth)
	if err != nil {
		log.WarnContext(ctx, "failed to encrypt push payload", logger.Error(err))
		s.metrics.observe(ResultInvalid, 0)
		return outcome{Delivery: Delivery{Result: ResultInvalid, Err: errors.Join(ErrInvalidSubscription, err)}}
	}

	d := s.sender.Send(ctx, sub.Endpoint, body)
	s.metrics.observe(d.Result, d.Duration)
	o := outcome{Delivery: d}

	switch d.Result {
	case ResultSent:
		log.DebugContext(ctx, "push delivered",
			logger.Result(string(d.Result)),
			logger.StatusCode(d.StatusCode),
			logger.Duration(d.Duration),
		)
	case ResultGone:
		if err := s.store.Delete(ctx, sub.Endpoint); err != nil {
			log.ErrorContext(ctx, "failed to delete gone push subscription", logger.Error(err))
			break
		}
		o.cleaned = true
		s.metrics.cleanedOne()
		log.InfoContext(ctx, "removed gone push subscription", logger.StatusCode(d.StatusCode))
	case ResultInvalid:
		log.WarnContext(ctx, "skipping push subscription with unusable endpoint", logger.Error(d.Err))
	default:
		if !errors.Is(d.Err, ErrSigning) {
			log.WarnContext(ctx, "push delivery failed",
				logger.Result(string(d.Result)),
				logger.StatusCode(d.StatusCode),
				logger.Duration(d.Duration),
				logger.Error(d.Err),
			)
		}
	}

	return o
}
