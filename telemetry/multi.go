package telemetry

import "github.com/fractalic-run/fractalic/interp"

// Multi fans one event out to several emitters, in order. Used to wire
// tracing and metrics handlers (and a session recorder) onto the same run
// without the driver loop knowing about either.
type Multi []interp.Emitter

func (m Multi) Emit(e interp.Event) {
	for _, emitter := range m {
		if emitter != nil {
			emitter.Emit(e)
		}
	}
}

var _ interp.Emitter = Multi(nil)
