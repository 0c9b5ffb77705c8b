package webpush_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/vapid"
	"github.com/dmitrymomot/pushkit/pkg/webpush"
)

type stubSigner struct {
	err error
}

func (s stubSigner) Authorization(endpoint string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "vapid t=token, k=key", nil
}

type capturedRequest struct {
	method string
	path   string
	header http.Header
	body   []byte
}

// capture records each request on ch and answers with status.
func capture(ch chan<- capturedRequest, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		select {
		case ch <- capturedRequest{method: r.Method, path: r.URL.Path, header: r.Header.Clone(), body: body}:
		default:
		}
		w.WriteHeader(status)
	}
}

func TestSender_Headers(t *testing.T) {
	t.Parallel()

	requests := make(chan capturedRequest, 1)
	server := httptest.NewServer(capture(requests, http.StatusCreated))
	defer server.Close()

	sender := webpush.NewSender(stubSigner{},
		webpush.WithTTL(time.Hour),
		webpush.WithUrgency(webpush.UrgencyHigh),
	)

	d := sender.Send(context.Background(), server.URL+"/push/1", []byte("ciphertext"))

	require.NoError(t, d.Err)
	assert.Equal(t, webpush.ResultSent, d.Result)
	assert.Equal(t, http.StatusCreated, d.StatusCode)

	got := <-requests
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/push/1", got.path)
	assert.Equal(t, "application/octet-stream", got.header.Get("Content-Type"))
	assert.Equal(t, "aes128gcm", got.header.Get("Content-Encoding"))
	assert.Equal(t, "vapid t=token, k=key", got.header.Get("Authorization"))
	assert.Equal(t, "3600", got.header.Get("TTL"))
	assert.Equal(t, "high", got.header.Get("Urgency"))
	assert.Equal(t, []byte("ciphertext"), got.body)
}

func TestSender_DefaultHeaders(t *testing.T) {
	t.Parallel()

	requests := make(chan capturedRequest, 1)
	server := httptest.NewServer(capture(requests, http.StatusOK))
	defer server.Close()

	d := webpush.NewSender(stubSigner{}, webpush.WithUrgency("urgent")).
		Send(context.Background(), server.URL, []byte("x"))

	require.NoError(t, d.Err)
	got := <-requests
	assert.Equal(t, "86400", got.header.Get("TTL"))
	assert.Empty(t, got.header.Get("Urgency"))
}

func TestSender_Classification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		want    webpush.Result
		wantErr error
	}{
		{"created", http.StatusCreated, "", webpush.ResultSent, nil},
		{"ok", http.StatusOK, "", webpush.ResultSent, nil},
		{"accepted", http.StatusAccepted, "", webpush.ResultSent, nil},
		{"not found", http.StatusNotFound, "", webpush.ResultGone, webpush.ErrSubscriptionGone},
		{"gone", http.StatusGone, "expired", webpush.ResultGone, webpush.ErrSubscriptionGone},
		{"bad request", http.StatusBadRequest, "bad", webpush.ResultFailed, webpush.ErrRelayRejected},
		{"unauthorized", http.StatusUnauthorized, "", webpush.ResultFailed, webpush.ErrRelayRejected},
		{"too large", http.StatusRequestEntityTooLarge, "", webpush.ResultFailed, webpush.ErrRelayRejected},
		{"rate limited", http.StatusTooManyRequests, "", webpush.ResultFailed, webpush.ErrRelayRejected},
		{"server error", http.StatusInternalServerError, "oops", webpush.ResultFailed, webpush.ErrRelayRejected},
		{"unavailable", http.StatusServiceUnavailable, "", webpush.ResultFailed, webpush.ErrRelayRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			d := webpush.NewSender(stubSigner{}).Send(context.Background(), server.URL, []byte("x"))

			assert.Equal(t, tt.want, d.Result)
			assert.Equal(t, tt.status, d.StatusCode)
			if tt.wantErr == nil {
				assert.NoError(t, d.Err)
			} else {
				assert.ErrorIs(t, d.Err, tt.wantErr)
			}
		})
	}
}

func TestSender_RejectionBodyIsSanitized(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid\n\tjwt   token"))
	}))
	defer server.Close()

	d := webpush.NewSender(stubSigner{}).Send(context.Background(), server.URL, []byte("x"))

	require.Error(t, d.Err)
	assert.Contains(t, d.Err.Error(), "status 400: invalid jwt token")
}

func TestSender_RedirectIsFailure(t *testing.T) {
	t.Parallel()

	var followed atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/moved" {
			followed.Store(true)
			w.WriteHeader(http.StatusCreated)
			return
		}
		http.Redirect(w, r, "/moved", http.StatusTemporaryRedirect)
	}))
	defer server.Close()

	d := webpush.NewSender(stubSigner{}).Send(context.Background(), server.URL+"/push", []byte("x"))

	assert.Equal(t, webpush.ResultFailed, d.Result)
	assert.Equal(t, http.StatusTemporaryRedirect, d.StatusCode)
	assert.False(t, followed.Load())
}

func TestSender_Timeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	sender := webpush.NewSender(stubSigner{}, webpush.WithTimeout(50*time.Millisecond))
	d := sender.Send(context.Background(), server.URL, []byte("x"))

	assert.Equal(t, webpush.ResultFailed, d.Result)
	assert.Zero(t, d.StatusCode)
	assert.ErrorIs(t, d.Err, webpush.ErrTimeout)
}

func TestSender_TransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	d := webpush.NewSender(stubSigner{}).Send(context.Background(), endpoint, []byte("x"))

	assert.Equal(t, webpush.ResultFailed, d.Result)
	assert.ErrorIs(t, d.Err, webpush.ErrTransport)
}

func TestSender_SigningError(t *testing.T) {
	t.Parallel()

	var called atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
	}))
	defer server.Close()

	signErr := errors.New("hsm unavailable")
	d := webpush.NewSender(stubSigner{err: signErr}).Send(context.Background(), server.URL, []byte("x"))

	assert.Equal(t, webpush.ResultFailed, d.Result)
	assert.ErrorIs(t, d.Err, webpush.ErrSigning)
	assert.ErrorIs(t, d.Err, signErr)
	assert.False(t, called.Load())
}

func TestSender_EndpointWithoutOrigin(t *testing.T) {
	t.Parallel()

	d := webpush.NewSender(stubSigner{err: vapid.ErrInvalidEndpoint}).Send(context.Background(), "mailto:x", []byte("x"))

	assert.Equal(t, webpush.ResultInvalid, d.Result)
	assert.ErrorIs(t, d.Err, webpush.ErrInvalidEndpoint)
	assert.NotErrorIs(t, d.Err, webpush.ErrSigning)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, webpush.ResultSent, webpush.Classify(201))
	assert.Equal(t, webpush.ResultSent, webpush.Classify(299))
	assert.Equal(t, webpush.ResultGone, webpush.Classify(404))
	assert.Equal(t, webpush.ResultGone, webpush.Classify(410))
	assert.Equal(t, webpush.ResultFailed, webpush.Classify(301))
	assert.Equal(t, webpush.ResultFailed, webpush.Classify(403))
	assert.Equal(t, webpush.ResultFailed, webpush.Classify(500))
}
