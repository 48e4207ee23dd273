package transceiver

import "github.com/sirupsen/logrus"

// Option customizes a Transceiver at construction time, mirroring the
// self-referential-function pattern used for daabr-chrome-vision's
// SessionOption.
type Option = func(*Transceiver)

// WithAcceptFrom restricts a passive Transceiver to bind only the given
// local address instead of the wildcard address. Ignored by active
// Transceivers.
func WithAcceptFrom(addr string) Option {
	return func(t *Transceiver) {
		t.acceptFrom = addr
	}
}

// WithPreferIPv6 makes an active Transceiver attempt the IPv6-resolved
// address first, retrying the first IPv4 address on failure (spec.md
// §4.5.1). The default preference is IPv4 first.
func WithPreferIPv6(prefer bool) Option {
	return func(t *Transceiver) {
		t.preferIPv6 = prefer
	}
}

// WithLogger overrides the *logrus.Logger used for per-connection
// connect/disconnect/frame-error diagnostics. The codec itself never
// logs; only the worker does.
func WithLogger(logger *logrus.Logger) Option {
	return func(t *Transceiver) {
		t.logger = logger
	}
}
