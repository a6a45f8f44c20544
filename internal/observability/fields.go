package observability

import "go.uber.org/zap"

// Thin aliases over zap's field constructors so call sites outside the
// logging layer do not import zap directly.

// String constructs a string log field.
func String(key, value string) zap.Field { return zap.String(key, value) }

// Int constructs an int log field.
func Int(key string, value int) zap.Field { return zap.Int(key, value) }

// Bool constructs a bool log field.
func Bool(key string, value bool) zap.Field { return zap.Bool(key, value) }

// Float64 constructs a float64 log field.
func Float64(key string, value float64) zap.Field { return zap.Float64(key, value) }

// Error constructs an error log field.
func Error(err error) zap.Field { return zap.Error(err) }
