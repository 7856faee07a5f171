package clock

import "time"

// SystemClock reads the wall clock in UTC at microsecond precision, the resolution
// postgres keeps for timestamptz. Records then compare equal across backends.
type SystemClock struct{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
