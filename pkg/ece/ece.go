package ece

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// PublicKeySize is the length of an uncompressed P-256 point.
	PublicKeySize = 65
	// AuthSecretSize is the length of the subscription auth secret.
	AuthSecretSize = 16
	// SaltSize is the length of the per-message salt.
	SaltSize = 16
	// TagSize is the AES-GCM authentication tag length.
	TagSize = 16
	// RecordSize is the rs value written into every header.
	RecordSize = 4096
	// HeaderSize is salt, record size, key id length and key id.
	HeaderSize = SaltSize + 4 + 1 + PublicKeySize
	// MaxPlaintextSize keeps the whole body within the 4096 octets every
	// push service must accept (RFC 8291 section 4).
	MaxPlaintextSize = RecordSize - HeaderSize - 1 - TagSize

	keySize   = 16
	nonceSize = 12
	ikmSize   = 32

	// lastRecordDelimiter marks the final (and only) record.
	lastRecordDelimiter = 0x02
)

var (
	webPushInfo = []byte("WebPush: info\x00")
	cekInfo     = []byte("Content-Encoding: aes128gcm\x00")
	nonceInfo   = []byte("Content-Encoding: nonce\x00")
)

// ValidateKeys checks subscription key material before it reaches the
// cryptographic path.
func ValidateKeys(uaPublic, authSecret []byte) error {
	if len(uaPublic) != PublicKeySize || uaPublic[0] != 0x04 {
		return ErrInvalidPublicKey
	}
	if len(authSecret) != AuthSecretSize {
		return ErrInvalidAuthSecret
	}
	if _, err := ecdh.P256().NewPublicKey(uaPublic); err != nil {
		return errors.Join(ErrInvalidPublicKey, err)
	}
	return nil
}

// Encrypt seals plaintext for the user agent identified by its public key and
// auth secret.
func Encrypt(plaintext, uaPublic, authSecret []byte) ([]byte, error) {
	ephemeral, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	return encrypt(plaintext, uaPublic, authSecret, ephemeral, salt)
}

func encrypt(plaintext, uaPublic, authSecret []byte, ephemeral *ecdh.PrivateKey, salt []byte) ([]byte, error) {
	if err := ValidateKeys(uaPublic, authSecret); err != nil {
		return nil, err
	}
	if len(plaintext) > MaxPlaintextSize {
		return nil, ErrPayloadTooLarge
	}

	uaKey, err := ecdh.P256().NewPublicKey(uaPublic)
	if err != nil {
		return nil, errors.Join(ErrInvalidPublicKey, err)
	}

	shared, err := ephemeral.ECDH(uaKey)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	asPublic := ephemeral.PublicKey().Bytes()
	gcm, nonce, err := deriveCipher(shared, authSecret, uaPublic, asPublic, salt)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	record := make([]byte, 0, len(plaintext)+1)
	record = append(record, plaintext...)
	record = append(record, lastRecordDelimiter)

	out := make([]byte, HeaderSize, HeaderSize+len(record)+TagSize)
	copy(out, salt)
	binary.BigEndian.PutUint32(out[SaltSize:], RecordSize)
	out[SaltSize+4] = PublicKeySize
	copy(out[SaltSize+5:], asPublic)

	return gcm.Seal(out, nonce, record, nil), nil
}

// Decrypt opens a single-record aes128gcm body with the user agent's private
// key and auth secret, returning the plaintext without the delimiter.
func Decrypt(body []byte, uaPrivate *ecdh.PrivateKey, authSecret []byte) ([]byte, error) {
	if uaPrivate == nil {
		return nil, ErrDecryptionFailed
	}
	if len(authSecret) != AuthSecretSize {
		return nil, ErrInvalidAuthSecret
	}
	if len(body) < HeaderSize+1+TagSize {
		return nil, ErrInvalidHeader
	}

	salt := body[:SaltSize]
	rs := binary.BigEndian.Uint32(body[SaltSize:])
	idLen := int(body[SaltSize+4])
	if idLen != PublicKeySize || rs < 1+TagSize {
		return nil, ErrInvalidHeader
	}
	asPublic := body[SaltSize+5 : HeaderSize]
	ciphertext := body[HeaderSize:]
	if uint32(len(ciphertext)) > rs {
		return nil, ErrInvalidHeader
	}

	asKey, err := ecdh.P256().NewPublicKey(asPublic)
	if err != nil {
		return nil, errors.Join(ErrInvalidHeader, err)
	}

	shared, err := uaPrivate.ECDH(asKey)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}

	gcm, nonce, err := deriveCipher(shared, authSecret, uaPrivate.PublicKey().Bytes(), asPublic, salt)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}

	record, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}

	// Padding is zero bytes after the delimiter; the last non-zero byte must
	// be the final-record delimiter.
	i := len(record) - 1
	for i >= 0 && record[i] == 0 {
		i--
	}
	if i < 0 || record[i] != lastRecordDelimiter {
		return nil, ErrDecryptionFailed
	}
	return record[:i], nil
}

// deriveCipher runs the RFC 8291 key schedule and returns the AEAD and nonce.
func deriveCipher(shared, authSecret, uaPublic, asPublic, salt []byte) (cipher.AEAD, []byte, error) {
	info := make([]byte, 0, len(webPushInfo)+2*PublicKeySize)
	info = append(info, webPushInfo...)
	info = append(info, uaPublic...)
	info = append(info, asPublic...)

	ikm, err := derive(shared, authSecret, info, ikmSize)
	if err != nil {
		return nil, nil, err
	}
	cek, err := derive(ikm, salt, cekInfo, keySize)
	if err != nil {
		return nil, nil, err
	}
	nonce, err := derive(ikm, salt, nonceInfo, nonceSize)
	if err != nil {
		return nil, nil, err
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	return gcm, nonce, nil
}

func derive(secret, salt, info []byte, size int) ([]byte, error) {
	out := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, info), out); err != nil {
		return nil, err
	}
	return out, nil
}
