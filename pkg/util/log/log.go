// Package log provides the leveled, context-scoped logging surface used
// throughout the balancer packages. It is a small subset of cockroach's
// pkg/util/log: a single global sink, severity levels, and a verbosity
// gate for VEventf, all keyed off logtags carried on the context.
package log

import (
	"context"
	stdlog "log"
	"os"
	"sync/atomic"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
)

var sink = stdlog.New(os.Stderr, "", stdlog.LstdFlags|stdlog.Lmicroseconds)

// verbosity is the global V-level threshold; VEventf calls at or below
// this level are emitted, higher ones are dropped.
var verbosity int32

// SetVerbosity sets the global V-level threshold.
func SetVerbosity(level int32) {
	atomic.StoreInt32(&verbosity, level)
}

func prefix(ctx context.Context, severity string) string {
	if tags := logtags.FromContext(ctx); tags != nil {
		return "[" + severity + "] [" + tags.String() + "] "
	}
	return "[" + severity + "] "
}

// Infof logs at info severity.
func Infof(ctx context.Context, format string, args ...interface{}) {
	sink.Print(prefix(ctx, "I") + redact.Sprintf(format, args...).StripMarkers())
}

// Warningf logs at warning severity.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	sink.Print(prefix(ctx, "W") + redact.Sprintf(format, args...).StripMarkers())
}

// Errorf logs at error severity.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	sink.Print(prefix(ctx, "E") + redact.Sprintf(format, args...).StripMarkers())
}

// Fatalf logs at fatal severity and terminates the process. Reserved for
// startup-time and other programming-error paths with no caller able to
// degrade gracefully; a component that can report failure through a
// return value instead — such as search.Driver.Run on a precondition
// violation — must do that, not call Fatalf.
func Fatalf(ctx context.Context, format string, args ...interface{}) {
	sink.Print(prefix(ctx, "F") + redact.Sprintf(format, args...).StripMarkers())
	os.Exit(1)
}

// VEventf logs at info severity if level is at or below the global
// verbosity threshold set by SetVerbosity.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	if atomic.LoadInt32(&verbosity) < level {
		return
	}
	Infof(ctx, format, args...)
}

// V returns whether logging at the given verbosity level is enabled.
func V(level int32) bool {
	return atomic.LoadInt32(&verbosity) >= level
}

// Safe wraps a value so it is treated as non-sensitive when logged, akin
// to cockroach's log.Safe.
func Safe(v interface{}) redact.SafeValue {
	return redact.Safe(v)
}
