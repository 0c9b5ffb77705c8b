package vapid

import (
	"bytes"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

const (
	scalarSize    = 32
	signatureSize = 2 * scalarSize
)

// RawSignature converts an ECDSA P-256 signature into the 64-byte r‖s form
// required by JWS ES256. DER input (a SEQUENCE of two INTEGERs) has each
// integer stripped of leading zero bytes and left-padded to 32 bytes. Input
// that is not DER but already 64 bytes long is taken as raw and copied.
func RawSignature(sig []byte) ([]byte, error) {
	raw, err := derToRaw(sig)
	if err == nil {
		return raw, nil
	}
	if len(sig) == signatureSize {
		return bytes.Clone(sig), nil
	}
	return nil, err
}

func derToRaw(sig []byte) ([]byte, error) {
	var (
		inner cryptobyte.String
		r, s  cryptobyte.String
	)
	input := cryptobyte.String(sig)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) || !input.Empty() {
		return nil, ErrInvalidSignature
	}
	if !inner.ReadASN1(&r, asn1.INTEGER) || !inner.ReadASN1(&s, asn1.INTEGER) || !inner.Empty() {
		return nil, ErrInvalidSignature
	}

	out := make([]byte, signatureSize)
	if err := putScalar(out[:scalarSize], r); err != nil {
		return nil, err
	}
	if err := putScalar(out[scalarSize:], s); err != nil {
		return nil, err
	}
	return out, nil
}

// putScalar writes a DER INTEGER body right-aligned into dst.
func putScalar(dst, v []byte) error {
	// Negative values never occur in a valid signature.
	if len(v) == 0 || v[0]&0x80 != 0 {
		return ErrInvalidSignature
	}
	v = bytes.TrimLeft(v, "\x00")
	if len(v) > len(dst) {
		return ErrInvalidSignature
	}
	copy(dst[len(dst)-len(v):], v)
	return nil
}
