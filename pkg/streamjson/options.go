package streamjson

import "go.uber.org/zap"

// Option configures a Stream.
type Option interface {
	apply(*config)
}

type config struct {
	progressive bool
	strict      bool
	maxDepth    int
	logger      *zap.Logger
}

func defaultConfig() config {
	return config{
		progressive: true,
		maxDepth:    128,
	}
}

type optionFunc func(*config)

func (f optionFunc) apply(cfg *config) { f(cfg) }

// WithProgressiveValidation toggles validation after every token. When
// disabled, only the authoritative pass at stream completion runs.
// Enabled by default.
func WithProgressiveValidation(enabled bool) Option {
	return optionFunc(func(cfg *config) {
		cfg.progressive = enabled
	})
}

// WithStrictStrings drops raw newlines inside string literals. LLM output
// routinely contains them, so the default is lenient.
func WithStrictStrings(strict bool) Option {
	return optionFunc(func(cfg *config) {
		cfg.strict = strict
	})
}

// WithMaxDepth bounds container nesting. Exceeding it is a hard error,
// since runaway nesting signals a broken producer rather than a data
// quality problem. Default 128.
func WithMaxDepth(depth int) Option {
	return optionFunc(func(cfg *config) {
		if depth > 0 {
			cfg.maxDepth = depth
		}
	})
}

// WithLogger installs a zap logger that records every observability event
// at debug level.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(cfg *config) {
		cfg.logger = logger
	})
}
