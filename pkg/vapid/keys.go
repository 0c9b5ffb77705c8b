package vapid

import (
	"bytes"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"math/big"
	"strings"
)

const (
	// PublicKeySize is the length of an uncompressed P-256 point.
	PublicKeySize = 65
	// PrivateKeySize is the length of a P-256 private scalar.
	PrivateKeySize = 32
)

// KeyPair is an immutable P-256 key pair used for VAPID signing.
type KeyPair struct {
	private *ecdsa.PrivateKey
	scalar  []byte
	public  []byte
}

// GenerateKeys creates a fresh key pair. Rotating the key invalidates every
// subscription made against the previous public key.
func GenerateKeys() (*KeyPair, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Join(ErrInvalidPrivateKey, err)
	}
	return newKeyPair(priv)
}

// ParseKeys builds a key pair from its base64url encoded halves: the 65-byte
// uncompressed public point and the 32-byte private scalar. An empty public
// key is derived from the private one; a non-empty one must match it.
func ParseKeys(publicKey, privateKey string) (*KeyPair, error) {
	if privateKey == "" {
		return nil, ErrMissingKeys
	}

	scalar, err := DecodeKey(privateKey)
	if err != nil || len(scalar) != PrivateKeySize {
		return nil, ErrInvalidPrivateKey
	}

	priv, err := ecdh.P256().NewPrivateKey(scalar)
	if err != nil {
		return nil, errors.Join(ErrInvalidPrivateKey, err)
	}

	kp, err := newKeyPair(priv)
	if err != nil {
		return nil, err
	}

	if publicKey != "" {
		pub, err := DecodeKey(publicKey)
		if err != nil || len(pub) != PublicKeySize || pub[0] != 0x04 {
			return nil, ErrInvalidPublicKey
		}
		if !bytes.Equal(pub, kp.public) {
			return nil, ErrKeyMismatch
		}
	}

	return kp, nil
}

func newKeyPair(priv *ecdh.PrivateKey) (*KeyPair, error) {
	pub := priv.PublicKey().Bytes()
	if len(pub) != PublicKeySize {
		return nil, ErrInvalidPublicKey
	}

	key := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(pub[1:33]),
			Y:     new(big.Int).SetBytes(pub[33:]),
		},
		D: new(big.Int).SetBytes(priv.Bytes()),
	}

	return &KeyPair{
		private: key,
		scalar:  priv.Bytes(),
		public:  pub,
	}, nil
}

// PublicKey returns a copy of the uncompressed public point.
func (k *KeyPair) PublicKey() []byte {
	return bytes.Clone(k.public)
}

// PublicKeyString returns the public point as unpadded base64url, the form
// passed to PushManager.subscribe as applicationServerKey.
func (k *KeyPair) PublicKeyString() string {
	return base64.RawURLEncoding.EncodeToString(k.public)
}

// PrivateKeyString returns the private scalar as unpadded base64url.
func (k *KeyPair) PrivateKeyString() string {
	return base64.RawURLEncoding.EncodeToString(k.scalar)
}

// ECDSA returns the public half as an *ecdsa.PublicKey for token verification.
func (k *KeyPair) ECDSA() *ecdsa.PublicKey {
	return &k.private.PublicKey
}

// DecodeKey decodes key material in base64url or standard base64, padded
// or not. Browsers and server libraries disagree on the alphabet.
func DecodeKey(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	if strings.ContainsAny(s, "+/") {
		return base64.RawStdEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}
