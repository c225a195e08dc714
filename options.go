package vedirect

import (
	"go.uber.org/zap"

	"github.com/ashajkofci/govedirect/internal/logging"
)

type decoderConfig struct {
	disableChecksum bool
	logger          *zap.Logger
	onError         func(error)
	handlers        []HexHandler
}

func defaultDecoderConfig() decoderConfig {
	return decoderConfig{
		logger: logging.GetLogger(),
	}
}

// Option configures a Decoder.
type Option func(*decoderConfig)

// WithoutChecksum accepts every TEXT frame whatever its checksum. Useful on
// lossy links or while debugging.
func WithoutChecksum() Option {
	return func(c *decoderConfig) {
		c.disableChecksum = true
	}
}

// WithLogger sets the logger used for frame diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *decoderConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithErrorHandler sets a function called with a *FrameError for every
// reported problem. It runs synchronously inside FeedByte.
func WithErrorHandler(fn func(error)) Option {
	return func(c *decoderConfig) {
		c.onError = fn
	}
}

// WithHexHandler registers h at construction time.
func WithHexHandler(h HexHandler) Option {
	return func(c *decoderConfig) {
		if h != nil {
			c.handlers = append(c.handlers, h)
		}
	}
}
