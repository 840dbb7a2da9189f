package clock

import (
	"time"

	"go.uber.org/fx"
)

// Module provides the system clock.
var Module = fx.Module("clock", fx.Provide(func() Clock { return SystemClock{} }))

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
