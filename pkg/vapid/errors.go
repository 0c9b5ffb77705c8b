package vapid

import "errors"

var (
	ErrMissingKeys       = errors.New("vapid: missing key pair")
	ErrInvalidPublicKey  = errors.New("vapid: invalid public key")
	ErrInvalidPrivateKey = errors.New("vapid: invalid private key")
	ErrKeyMismatch       = errors.New("vapid: public key does not match private key")
	ErrInvalidSubject    = errors.New("vapid: subject must be a mailto: or https: URI")
	ErrInvalidEndpoint   = errors.New("vapid: endpoint is not an absolute http(s) URL")
	ErrInvalidSignature  = errors.New("vapid: malformed ECDSA signature")
	ErrSigningFailed     = errors.New("vapid: failed to sign token")
)
