package webpush_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/webpush"
)

type MockDeliverer struct {
	mock.Mock
}

func (m *MockDeliverer) Deliver(ctx context.Context, to webpush.Recipient, msg webpush.Message) (webpush.Summary, error) {
	args := m.Called(ctx, to, msg)
	return args.Get(0).(webpush.Summary), args.Error(1)
}

func TestAsyncNotifier_Notify(t *testing.T) {
	t.Parallel()

	d := new(MockDeliverer)
	d.On("Deliver", mock.Anything, webpush.ToUser("partner"), webpush.Message{Title: "Love App", Body: "Kocham Cię!"}).
		Return(webpush.Summary{Sent: 1, Total: 1}, nil).Once()

	n := webpush.NewAsyncNotifier(d, webpush.WithNotifierLogger(slog.New(slog.DiscardHandler)))
	n.Notify(context.Background(), "partner", "Love App", "Kocham Cię!")
	n.Wait()

	d.AssertExpectations(t)
}

func TestAsyncNotifier_DetachedFromCallerCancellation(t *testing.T) {
	t.Parallel()

	var deliveredCtxErr error
	d := new(MockDeliverer)
	d.On("Deliver", mock.Anything, webpush.ToUser("u1"), mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			deliveredCtxErr = ctx.Err()
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
		}).
		Return(webpush.Summary{}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := webpush.NewAsyncNotifier(d,
		webpush.WithNotifierLogger(slog.New(slog.DiscardHandler)),
		webpush.WithNotifyTimeout(time.Second),
	)
	n.Notify(ctx, "u1", "t", "b")
	n.Wait()

	assert.NoError(t, deliveredCtxErr)
	d.AssertExpectations(t)
}

func TestAsyncNotifier_FailuresDoNotPropagate(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	d := new(MockDeliverer)
	d.On("Deliver", mock.Anything, webpush.ToAll(), mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(webpush.Summary{}, errors.New("store down")).Once()

	n := webpush.NewAsyncNotifier(d, webpush.WithNotifierLogger(slog.New(slog.DiscardHandler)))

	returned := make(chan struct{})
	go func() {
		n.Dispatch(context.Background(), webpush.ToAll(), webpush.Message{Title: "t", Body: "b"})
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on delivery")
	}

	close(release)
	n.Wait()
	d.AssertExpectations(t)
}

func TestAsyncNotifier_WithService(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	relay := newRelay(t, nil)
	store := webpush.NewMemoryStore()
	svc, _ := newService(t, store)
	require.NoError(t, svc.Subscribe(ctx, newDevice(t).subscription("partner", relay.endpoint("/p"))))

	var notifier webpush.Notifier = webpush.NewAsyncNotifier(svc, webpush.WithNotifierLogger(slog.New(slog.DiscardHandler)))
	notifier.Notify(ctx, "partner", "Love App", "Kocham Cię!")
	notifier.(*webpush.AsyncNotifier).Wait()

	assert.Len(t, relay.received(), 1)
}

func TestNoopNotifier(t *testing.T) {
	t.Parallel()

	var n webpush.Notifier = webpush.NoopNotifier{}
	assert.NotPanics(t, func() { n.Notify(context.Background(), "u1", "t", "b") })
}
