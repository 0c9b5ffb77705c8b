package webpush_test

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/vapid"
	"github.com/dmitrymomot/pushkit/pkg/webpush"
)

// device is a simulated browser push subscription.
type device struct {
	private *ecdh.PrivateKey
	auth    []byte
}

func newDevice(t *testing.T) device {
	t.Helper()
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)
	return device{private: priv, auth: auth}
}

func (d device) subscription(userID, endpoint string) webpush.Subscription {
	return webpush.Subscription{
		UserID:   userID,
		Endpoint: endpoint,
		Keys: webpush.Keys{
			P256dh: base64.RawURLEncoding.EncodeToString(d.private.PublicKey().Bytes()),
			Auth:   base64.RawURLEncoding.EncodeToString(d.auth),
		},
	}
}

func newKeys(t *testing.T) *vapid.KeyPair {
	t.Helper()
	keys, err := vapid.GenerateKeys()
	require.NoError(t, err)
	return keys
}
