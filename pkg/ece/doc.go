// Package ece implements Message Encryption for Web Push (RFC 8291) using the
// aes128gcm content coding (RFC 8188).
//
// Encrypt seals a payload for one user agent. Each call generates a fresh
// ephemeral P-256 key pair and a fresh 16-byte salt; neither is ever reused,
// so encrypting the same plaintext twice yields unrelated ciphertexts.
//
//	body, err := ece.Encrypt(payload, sub.P256dh, sub.Auth)
//	// POST body with "Content-Encoding: aes128gcm"
//
// The produced body is a single record:
//
//	salt (16) | record size (4, big-endian, 4096) | idlen (1, = 65) |
//	ephemeral public key (65) | AES-128-GCM(plaintext | 0x02) with 16-byte tag
//
// so its length is always HeaderSize + len(plaintext) + 1 + TagSize.
// Payloads that do not fit a single record are rejected with
// ErrPayloadTooLarge.
//
// Decrypt is the user agent side of the scheme. Servers only need it in tests
// and tooling.
package ece
