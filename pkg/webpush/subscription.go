package webpush

import (
	"errors"
	"time"

	"github.com/dmitrymomot/pushkit/pkg/ece"
	"github.com/dmitrymomot/pushkit/pkg/vapid"
)

// Keys holds the subscription key material as sent by the browser's
// PushSubscription.toJSON(): base64url encoded, usually without padding.
type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is a device registration with a push service.
// (UserID, Endpoint) is unique; saving the same pair again updates it.
type Subscription struct {
	UserID    string    `json:"user_id,omitempty"`
	Endpoint  string    `json:"endpoint"`
	Keys      Keys      `json:"keys"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DecodedKeys is validated, raw subscription key material.
type DecodedKeys struct {
	P256dh []byte
	Auth   []byte
}

// DecodeKeys validates the endpoint and decodes the key material: P256dh must
// be a 65-byte uncompressed P-256 point, Auth exactly 16 bytes.
func (s Subscription) DecodeKeys() (DecodedKeys, error) {
	if _, err := vapid.Origin(s.Endpoint); err != nil {
		return DecodedKeys{}, errors.Join(ErrInvalidSubscription, ErrInvalidEndpoint)
	}

	p256dh, err := vapid.DecodeKey(s.Keys.P256dh)
	if err != nil {
		return DecodedKeys{}, errors.Join(ErrInvalidSubscription, ece.ErrInvalidPublicKey, err)
	}
	auth, err := vapid.DecodeKey(s.Keys.Auth)
	if err != nil {
		return DecodedKeys{}, errors.Join(ErrInvalidSubscription, ece.ErrInvalidAuthSecret, err)
	}

	if err := ece.ValidateKeys(p256dh, auth); err != nil {
		return DecodedKeys{}, errors.Join(ErrInvalidSubscription, err)
	}

	return DecodedKeys{P256dh: p256dh, Auth: auth}, nil
}

// Validate reports whether the subscription is usable for delivery.
func (s Subscription) Validate() error {
	if _, err := s.DecodeKeys(); err != nil {
		return err
	}
	return nil
}
