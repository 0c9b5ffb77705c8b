package ece

import "errors"

var (
	ErrInvalidPublicKey  = errors.New("ece: user agent public key must be a 65-byte uncompressed P-256 point")
	ErrInvalidAuthSecret = errors.New("ece: auth secret must be 16 bytes")
	ErrPayloadTooLarge   = errors.New("ece: payload does not fit a single record")
	ErrEncryptionFailed  = errors.New("ece: encryption failed")
	ErrInvalidHeader     = errors.New("ece: malformed aes128gcm header")
	ErrDecryptionFailed  = errors.New("ece: decryption failed")
)
