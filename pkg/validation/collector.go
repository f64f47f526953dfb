package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Collector gathers every failed check instead of stopping at the first one.
// Messages are prefixed with the collector's name when it has one.
type Collector struct {
	name   string
	errors []error
}

// NewCollector returns a collector whose messages are prefixed with name.
// An empty name produces unprefixed messages.
func NewCollector(name string) *Collector {
	return &Collector{name: name}
}

func (c *Collector) addf(field, format string, args ...any) *Collector {
	msg := fmt.Sprintf(format, args...)
	switch {
	case c.name != "" && field != "":
		c.errors = append(c.errors, fmt.Errorf("%s.%s: %s", c.name, field, msg))
	case field != "":
		c.errors = append(c.errors, fmt.Errorf("%s: %s", field, msg))
	default:
		c.errors = append(c.errors, errors.New(msg))
	}
	return c
}

// Fail records msg unconditionally.
func (c *Collector) Fail(msg string) *Collector {
	c.errors = append(c.errors, errors.New(msg))
	return c
}

// Check records msg when ok is false.
func (c *Collector) Check(ok bool, msg string) *Collector {
	if !ok {
		c.Fail(msg)
	}
	return c
}

func (c *Collector) Required(field, value string) *Collector {
	if strings.TrimSpace(value) == "" {
		c.addf(field, "required field is empty")
	}
	return c
}

func (c *Collector) RangeInt(field string, value, min, max int) *Collector {
	if value < min || value > max {
		c.addf(field, "value %d is outside range [%d, %d]", value, min, max)
	}
	return c
}

func (c *Collector) Positive(field string, value int) *Collector {
	if value <= 0 {
		c.addf(field, "value %d must be positive", value)
	}
	return c
}

func (c *Collector) PositiveFloat(field string, value float64) *Collector {
	if value <= 0 {
		c.addf(field, "value %g must be positive", value)
	}
	return c
}

func (c *Collector) RangeFloat(field string, value, min, max float64) *Collector {
	if value < min || value > max {
		c.addf(field, "value %g is outside range [%g, %g]", value, min, max)
	}
	return c
}

func (c *Collector) PositiveDuration(field string, value time.Duration) *Collector {
	if value <= 0 {
		c.addf(field, "duration %v must be positive", value)
	}
	return c
}

func (c *Collector) OneOf(field, value string, allowed []string) *Collector {
	for _, a := range allowed {
		if value == a {
			return c
		}
	}
	return c.addf(field, "value %q must be one of %v", value, allowed)
}

func (c *Collector) NotEmpty(field string, n int) *Collector {
	if n == 0 {
		c.addf(field, "must not be empty")
	}
	return c
}

// Custom records the error returned by fn, if any.
func (c *Collector) Custom(field string, fn func() error) *Collector {
	if err := fn(); err != nil {
		c.addf(field, "%v", err)
	}
	return c
}

// When runs fn only if cond holds.
func (c *Collector) When(cond bool, fn func(*Collector)) *Collector {
	if cond {
		fn(c)
	}
	return c
}

func (c *Collector) HasErrors() bool { return len(c.errors) > 0 }

func (c *Collector) Errors() []error { return c.errors }

// Messages returns the collected errors as strings, in the order recorded.
func (c *Collector) Messages() []string {
	out := make([]string, len(c.errors))
	for i, err := range c.errors {
		out[i] = err.Error()
	}
	return out
}

// Err joins every collected error, or returns nil.
func (c *Collector) Err() error {
	return errors.Join(c.errors...)
}

// DefaultOr returns value unless it is the zero value.
func DefaultOr[T comparable](value, def T) T {
	var zero T
	if value == zero {
		return def
	}
	return value
}

// Clamp bounds value to [min, max].
func Clamp[T int | float64 | time.Duration](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
