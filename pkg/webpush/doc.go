// Package webpush delivers end-to-end encrypted Web Push notifications.
//
// It ties together payload encryption (package ece), sender identification
// (package vapid) and the push protocol (RFC 8030):
//
//   - Sender performs one HTTP delivery to one push endpoint and classifies
//     the outcome as sent, gone (404/410) or failed.
//   - Service resolves subscriptions from a Store, encrypts and signs per
//     subscription, delivers with bounded concurrency, deletes subscriptions
//     that are gone and returns a Summary.
//   - AsyncNotifier is the fire-and-forget Notifier feature code depends on.
//
// # Usage
//
//	keys, err := vapid.ParseKeys(pub, priv)
//	svc, err := webpush.NewService(store, keys, "mailto:ops@example.com",
//	    webpush.WithConcurrency(16),
//	)
//
//	summary, err := svc.Deliver(ctx, webpush.ToUser(partnerID), webpush.Message{
//	    Title: "Love App",
//	    Body:  "Kocham Cię!",
//	    Emoji: "❤️",
//	})
//
// # Error handling
//
// Per-subscription problems never abort a batch: malformed key material is
// counted as Invalid, transient failures (5xx, timeouts, network errors) as
// Failed and the subscription is kept. Only an explicit 404 or 410 deletes a
// subscription. Deliver returns an error only for batch-level problems: store
// failures, an oversized message or a signing failure.
//
// # Storage
//
// MemoryStore is provided for tests and development. The pushstore package
// has PostgreSQL and Redis implementations. Store implementations must make
// Delete idempotent and Save an upsert on (UserID, Endpoint).
package webpush
