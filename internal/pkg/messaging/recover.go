package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/shandysiswandi/mailrelay/internal/pkg/stacktrace"
)

// deliver runs handler, converting a panic into an error. Handler errors are
// logged here because the message is already acknowledged.
func deliver(ctx context.Context, driver string, handler Handler, msg Message) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "panic", rvr, "stack", paths)
			} else {
				slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "panic", rvr, "stack", string(stack))
			}
			err = fmt.Errorf("messaging: panic in %s handler: %v", driver, rvr)
		}
	}()

	if err := handler(ctx, msg); err != nil {
		slog.WarnContext(ctx, "messaging handler failed", "driver", driver, "topic", msg.Topic, "error", err)
		return err
	}
	return nil
}
