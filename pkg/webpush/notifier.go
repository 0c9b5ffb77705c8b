package webpush

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/pushkit/pkg/logger"
)

// Notifier is the capability feature code depends on to notify a user.
// Implementations must not block the caller on delivery nor report delivery
// failures: a push problem never fails the action that triggered it.
type Notifier interface {
	Notify(ctx context.Context, userID, title, body string)
}

// NoopNotifier drops every notification. Useful when push is disabled.
type NoopNotifier struct{}

// Notify does nothing.
func (NoopNotifier) Notify(context.Context, string, string, string) {}

// DefaultNotifyTimeout bounds one background delivery.
const DefaultNotifyTimeout = 30 * time.Second

// AsyncNotifier delivers in background goroutines, detached from the
// caller's cancellation.
type AsyncNotifier struct {
	deliverer Deliverer
	timeout   time.Duration
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// NotifierOption configures an AsyncNotifier.
type NotifierOption func(*AsyncNotifier)

// WithNotifierLogger sets the logger for the AsyncNotifier.
func WithNotifierLogger(l *slog.Logger) NotifierOption {
	return func(n *AsyncNotifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithNotifyTimeout bounds each background delivery.
func WithNotifyTimeout(d time.Duration) NotifierOption {
	return func(n *AsyncNotifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// NewAsyncNotifier wraps a Deliverer, usually a *Service.
func NewAsyncNotifier(d Deliverer, opts ...NotifierOption) *AsyncNotifier {
	n := &AsyncNotifier{
		deliverer: d,
		timeout:   DefaultNotifyTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With(logger.Component("notifier"))
	return n
}

// Notify sends title and body to every device of userID in the background.
func (n *AsyncNotifier) Notify(ctx context.Context, userID, title, body string) {
	n.Dispatch(ctx, ToUser(userID), Message{Title: title, Body: body})
}

// Dispatch sends msg to to in the background.
func (n *AsyncNotifier) Dispatch(ctx context.Context, to Recipient, msg Message) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		summary, err := n.deliverer.Deliver(ctx, to, msg)
		if err != nil {
			n.logger.ErrorContext(ctx, "push notification failed",
				logger.UserID(to.UserID()),
				logger.Error(err),
			)
			return
		}
		n.logger.DebugContext(ctx, "push notification dispatched",
			logger.UserID(to.UserID()),
			logger.Count("sent", summary.Sent),
			logger.Count("total", summary.Total),
		)
	}()
}

// Wait blocks until every dispatched delivery has finished.
func (n *AsyncNotifier) Wait() {
	n.wg.Wait()
}
