package analyze

import (
	"context"

	"github.com/Sccrap/pe-triage/internal/extract"
	"github.com/Sccrap/pe-triage/internal/yara"
)

type config struct {
	ctx          context.Context
	minStringLen int
	yaraBinary   string
	yaraRules    string
	crossCheck   bool
}

// Option configures a Run or Bytes call.
type Option = func(c *config)

func configFromOpts(opts ...Option) *config {
	c := &config{
		ctx:          context.Background(),
		minStringLen: extract.DefaultMinLen,
		yaraBinary:   yara.DefaultBinary,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithContext bounds the external tools the pipeline runs.
func WithContext(ctx context.Context) Option {
	return Option(func(c *config) {
		c.ctx = ctx
	})
}

// WithMinStringLen sets the shortest string run that is extracted.
func WithMinStringLen(n int) Option {
	return Option(func(c *config) {
		if n > 0 {
			c.minStringLen = n
		}
	})
}

// WithYara scans the sample with rules. An empty binary keeps the yara
// command from PATH.
func WithYara(binary, rules string) Option {
	return Option(func(c *config) {
		if binary != "" {
			c.yaraBinary = binary
		}
		c.yaraRules = rules
	})
}

// WithCrossCheck compares the core parse with saferwall/pe.
func WithCrossCheck(enabled bool) Option {
	return Option(func(c *config) {
		c.crossCheck = enabled
	})
}
