package formats

import (
	"go.uber.org/zap"

	"github.com/Faultbox/vismodel/pkg/binio"
)

// DiffuseOverrides supplies replacement diffuse texture paths keyed by material name.
type DiffuseOverrides interface {
	DiffuseFor(material string) (string, bool)
}

// Option configures a Walker or Decode call.
type Option func(*options)

type options struct {
	log           *zap.Logger
	overrides     DiffuseOverrides
	maxStringSize uint32
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop(), maxStringSize: binio.DefaultMaxStringLength}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger used for chunk traces. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithOverrides patches each material's diffuse map after it is decoded.
func WithOverrides(overrides DiffuseOverrides) Option {
	return func(o *options) {
		o.overrides = overrides
	}
}

// WithMaxStringLength bounds the length prefix of every string in the file.
func WithMaxStringLength(n uint32) Option {
	return func(o *options) {
		o.maxStringSize = n
	}
}
