package clock

import "time"

// Clock is the only source of "now" for TTLs and token validation.
type Clock interface {
	Now() time.Time
}

// Func adapts a plain function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }
