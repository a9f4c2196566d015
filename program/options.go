package program

import "github.com/rs/zerolog"

// ProcessorOption is a configurable parameter of the Processor
type ProcessorOption func(p *Processor)

// WithLogger sets the logger used for the diagnostic lines the processor
// emits when a vote is cast or rejected
func WithLogger(logger zerolog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}
