package clock

import (
	"testing"
	"time"

	clockport "github.com/Overland-East-Bay/cashcard-api/internal/ports/out/clock"
)

var _ clockport.Clock = SystemClock{}

func TestSystemClock_UTCMicroseconds(t *testing.T) {
	t.Parallel()

	now := NewSystemClock().Now()
	if now.Location() != time.UTC {
		t.Fatalf("location=%v want UTC", now.Location())
	}
	if now.Nanosecond()%1000 != 0 {
		t.Fatalf("expected microsecond precision, got %d ns", now.Nanosecond())
	}
	if d := time.Since(now); d < 0 || d > time.Minute {
		t.Fatalf("clock is off by %s", d)
	}
}
