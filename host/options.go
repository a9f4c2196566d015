package host

import (
	"github.com/cmwaters/ballot/pkg/sign"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Option is a set of configurable parameters. If left empty, defaults
// will be used
type Option func(r *Runtime)

// WithLogger sets the logger. Defaults to stdout
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithVerifyFunc sets how transaction signatures are verified. This needs to
// match the key protocol of the payers' signers. Defaults to ed25519.
func WithVerifyFunc(f sign.VerifyFunc) Option {
	return func(r *Runtime) {
		r.verifyFunc = f
	}
}

// WithMetrics registers the runtime's collectors with reg
func WithMetrics(reg prometheus.Registerer) Option {
	return func(r *Runtime) {
		r.metrics = NewMetrics(reg)
	}
}

// WithErrorClassifier labels program errors in the invocation metrics. Errors
// the runtime itself produces keep their own labels.
func WithErrorClassifier(f func(error) string) Option {
	return func(r *Runtime) {
		r.classify = func(err error) string {
			if label := defaultClassify(err); label != "error" {
				return label
			}
			return f(err)
		}
	}
}

// WithInstructionLabeler names successful instructions in the votes metric.
// Transactions for which f returns false are not counted.
func WithInstructionLabeler(f func(data []byte) (string, bool)) Option {
	return func(r *Runtime) {
		r.label = f
	}
}

// Metrics exposes the runtime's collectors
func (r *Runtime) Metrics() *Metrics {
	return r.metrics
}
