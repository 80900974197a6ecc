package logger

import (
	"slices"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// QueryFields are the log keys that may carry visitor-typed text.
var QueryFields = []string{"query", "question"}

// WithMasking returns a logger that passes string fields named in keys through mask
// before they reach the encoder. Fields attached via With are masked too.
func WithMasking(l *zap.Logger, mask func(string) string, keys ...string) *zap.Logger {
	if mask == nil || len(keys) == 0 {
		return l
	}
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return l.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return &maskingCore{Core: c, mask: mask, keys: set}
	}))
}

type maskingCore struct {
	zapcore.Core
	mask func(string) string
	keys map[string]struct{}
}

func (c *maskingCore) With(fields []zapcore.Field) zapcore.Core {
	return &maskingCore{Core: c.Core.With(c.apply(fields)), mask: c.mask, keys: c.keys}
}

func (c *maskingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *maskingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, c.apply(fields)) //nolint:wrapcheck // delegating to the wrapped core
}

// apply copies fields only when one of them needs masking.
func (c *maskingCore) apply(fields []zapcore.Field) []zapcore.Field {
	var out []zapcore.Field
	for i, f := range fields {
		if f.Type != zapcore.StringType {
			continue
		}
		if _, ok := c.keys[f.Key]; !ok {
			continue
		}
		if out == nil {
			out = slices.Clone(fields)
		}
		out[i].String = c.mask(f.String)
	}
	if out == nil {
		return fields
	}
	return out
}
