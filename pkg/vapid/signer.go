package vapid

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultExpiration is the token lifetime; it bounds the replay window.
	DefaultExpiration = 12 * time.Hour
	// MaxExpiration is the longest lifetime RFC 8292 allows.
	MaxExpiration = 24 * time.Hour
)

// Header is the fixed JWS header of a VAPID token.
type Header struct {
	Type      string `json:"typ"`
	Algorithm string `json:"alg"`
}

// Claims is the VAPID claim set.
type Claims struct {
	Audience  string `json:"aud"`
	ExpiresAt int64  `json:"exp"`
	Subject   string `json:"sub"`
}

// Signer mints VAPID tokens for push endpoints.
// Safe for concurrent use; it holds no mutable state.
type Signer struct {
	keys       *KeyPair
	subject    string
	expiration time.Duration
	now        func() time.Time
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithExpiration overrides the token lifetime. Values above MaxExpiration are
// clamped; non-positive values are ignored.
func WithExpiration(d time.Duration) SignerOption {
	return func(s *Signer) {
		if d <= 0 {
			return
		}
		s.expiration = min(d, MaxExpiration)
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSigner creates a signer. The subject is a contact URI for the push
// service operator; a bare e-mail address is turned into a mailto: URI.
func NewSigner(keys *KeyPair, subject string, opts ...SignerOption) (*Signer, error) {
	if keys == nil {
		return nil, ErrMissingKeys
	}

	subject, err := normalizeSubject(subject)
	if err != nil {
		return nil, err
	}

	s := &Signer{
		keys:       keys,
		subject:    subject,
		expiration: DefaultExpiration,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PublicKey returns the base64url public key sent in the k= parameter.
func (s *Signer) PublicKey() string {
	return s.keys.PublicKeyString()
}

// Token returns a signed JWT scoped to the origin of endpoint.
func (s *Signer) Token(endpoint string) (string, error) {
	aud, err := Origin(endpoint)
	if err != nil {
		return "", err
	}

	headerJSON, err := json.Marshal(Header{Type: "JWT", Algorithm: "ES256"})
	if err != nil {
		return "", errors.Join(ErrSigningFailed, err)
	}

	claimsJSON, err := json.Marshal(Claims{
		Audience:  aud,
		ExpiresAt: s.now().Add(s.expiration).Unix(),
		Subject:   s.subject,
	})
	if err != nil {
		return "", errors.Join(ErrSigningFailed, err)
	}

	unsigned := base64URLEncode(headerJSON) + "." + base64URLEncode(claimsJSON)

	sig, err := s.sign(unsigned)
	if err != nil {
		return "", err
	}

	return unsigned + "." + base64URLEncode(sig), nil
}

// Authorization returns the value of the Authorization header for a request
// to endpoint, in the "vapid t=<token>, k=<key>" scheme.
func (s *Signer) Authorization(endpoint string) (string, error) {
	token, err := s.Token(endpoint)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("vapid t=%s, k=%s", token, s.PublicKey()), nil
}

func (s *Signer) sign(payload string) ([]byte, error) {
	digest := sha256.Sum256([]byte(payload))
	der, err := ecdsa.SignASN1(rand.Reader, s.keys.private, digest[:])
	if err != nil {
		return nil, errors.Join(ErrSigningFailed, err)
	}
	raw, err := derToRaw(der)
	if err != nil {
		return nil, errors.Join(ErrSigningFailed, err)
	}
	return raw, nil
}

// Origin returns the RFC 6454 serialization scheme://host[:port] of an
// absolute http(s) URL: the host is lowercased and the default port dropped.
func Origin(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.Join(ErrInvalidEndpoint, err)
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if (scheme != "https" && scheme != "http") || host == "" {
		return "", ErrInvalidEndpoint
	}

	port := u.Port()
	if port == defaultPorts[scheme] {
		port = ""
	}
	switch {
	case port != "":
		host = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		host = "[" + host + "]"
	}
	return scheme + "://" + host, nil
}

var defaultPorts = map[string]string{"http": "80", "https": "443"}

func normalizeSubject(subject string) (string, error) {
	subject = strings.TrimSpace(subject)
	switch {
	case strings.HasPrefix(subject, "mailto:") && len(subject) > len("mailto:"):
		return subject, nil
	case strings.HasPrefix(subject, "https://") && len(subject) > len("https://"):
		return subject, nil
	case strings.Contains(subject, "@") && !strings.Contains(subject, ":"):
		return "mailto:" + subject, nil
	default:
		return "", ErrInvalidSubject
	}
}

func base64URLEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}
