// Package vapid implements Voluntary Application Server Identification for
// Web Push (RFC 8292).
//
// A KeyPair holds the application server's P-256 signing key. It is loaded
// once from configuration and never changes while subscriptions created
// against its public half are alive: push services bind a subscription to the
// key the browser was given at subscribe time.
//
//	keys, err := vapid.ParseKeys(cfg.PublicKey, cfg.PrivateKey)
//	signer, err := vapid.NewSigner(keys, "mailto:ops@example.com")
//	header, err := signer.Authorization(sub.Endpoint)
//	req.Header.Set("Authorization", header) // vapid t=<jwt>, k=<public key>
//
// Tokens are ES256 JWTs whose audience is the origin of the push endpoint and
// whose expiry is 12 hours ahead. A token is minted per delivery and never
// cached, since the audience differs between push services.
//
// ECDSA signatures produced by crypto/ecdsa are ASN.1 DER encoded, while JWS
// requires the fixed 64-byte r‖s form. RawSignature performs that conversion.
package vapid
