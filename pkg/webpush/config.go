package webpush

import (
	"time"

	"github.com/dmitrymomot/pushkit/pkg/vapid"
)

// Config is the environment-driven configuration of a Service.
// Load it with config.Load.
type Config struct {
	VAPIDPublicKey  string        `env:"VAPID_PUBLIC_KEY"`                        // VAPIDPublicKey is the base64url uncompressed P-256 public key; derived from the private key when empty.
	VAPIDPrivateKey string        `env:"VAPID_PRIVATE_KEY,required"`              // VAPIDPrivateKey is the base64url P-256 private scalar.
	Subject         string        `env:"VAPID_SUBJECT,required"`                  // Subject is a mailto: or https: contact URI.
	TokenExpiration time.Duration `env:"VAPID_TOKEN_EXPIRATION" envDefault:"12h"` // TokenExpiration is the VAPID token lifetime, at most 24h.
	TTL             time.Duration `env:"PUSH_TTL" envDefault:"24h"`               // TTL is how long push services keep undelivered messages.
	Timeout         time.Duration `env:"PUSH_TIMEOUT" envDefault:"10s"`           // Timeout bounds one HTTP request to a push service.
	Concurrency     int           `env:"PUSH_CONCURRENCY" envDefault:"8"`         // Concurrency bounds parallel deliveries per batch.
	Urgency         string        `env:"PUSH_URGENCY"`                            // Urgency is an optional RFC 8030 urgency.
}

// NewServiceFromConfig parses the key pair from cfg and builds a Service.
// Key errors are returned as-is: they mean the deployment is misconfigured.
func NewServiceFromConfig(store Store, cfg Config, opts ...ServiceOption) (*Service, error) {
	keys, err := vapid.ParseKeys(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	if err != nil {
		return nil, err
	}

	base := []ServiceOption{
		WithConcurrency(cfg.Concurrency),
		WithSignerOptions(vapid.WithExpiration(cfg.TokenExpiration)),
		WithSenderOptions(
			WithTTL(cfg.TTL),
			WithTimeout(cfg.Timeout),
			WithUrgency(Urgency(cfg.Urgency)),
		),
	}

	return NewService(store, keys, cfg.Subject, append(base, opts...)...)
}
