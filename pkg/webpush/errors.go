package webpush

import "errors"

// Errors are grouped by how the service reacts to them:
//   - batch errors (ErrMissingStore, ErrMissingKeys, ErrSigning, ErrStore,
//     ErrInvalidRecipient, ErrPayloadTooLarge) abort Deliver and are returned;
//   - per-subscription errors are folded into the Summary and logged.
var (
	ErrMissingStore     = errors.New("webpush: subscription store is required")
	ErrMissingKeys      = errors.New("webpush: VAPID key pair is required")
	ErrSigning          = errors.New("webpush: failed to sign VAPID token")
	ErrStore            = errors.New("webpush: subscription store failure")
	ErrInvalidRecipient = errors.New("webpush: recipient user id is required")
	ErrPayloadTooLarge  = errors.New("webpush: message does not fit a single push record")

	ErrInvalidSubscription = errors.New("webpush: invalid subscription")
	ErrInvalidEndpoint     = errors.New("webpush: invalid endpoint")
	ErrSubscriptionGone    = errors.New("webpush: subscription is gone")
	ErrRelayRejected       = errors.New("webpush: push service rejected the message")
	ErrTimeout             = errors.New("webpush: push service request timed out")
	ErrTransport           = errors.New("webpush: push service request failed")
)
