package reconciler

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/renewals/pkg/errors"
	"github.com/agentstation/renewals/pkg/logging"
	"github.com/agentstation/renewals/pkg/plans"
)

// Options configures a reconciler.
type options struct {
	normalizer plans.Normalizer
	logger     *zerolog.Logger
}

func defaultOptions() *options {
	return &options{
		normalizer: plans.DefaultNormalizer,
		logger:     logging.Default(),
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (options *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithNormalizer sets the identifier normalizer used on both sides of the join.
func WithNormalizer(n plans.Normalizer) Option {
	return func(o *options) error {
		o.normalizer = n
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return &errors.ValidationError{
				Field:   "logger",
				Message: "cannot be nil",
			}
		}
		o.logger = logger
		return nil
	}
}
