// Package deliver hands admitted alerts to the outside world.
//
// The engine's obligation ends at the Sink boundary: report templating,
// email, chat and the rest live behind whatever implements Sink.
package deliver

import (
	"context"

	"github.com/abelbrown/flipwatch/internal/logging"
	"github.com/abelbrown/flipwatch/internal/store"
)

// Sink receives newly admitted alerts.
type Sink interface {
	Deliver(ctx context.Context, a store.Alert) error
}

// LogSink writes one structured log line per alert. Useful as a default
// when no webhook is configured, and in tests.
type LogSink struct{}

// Deliver implements Sink.
func (LogSink) Deliver(_ context.Context, a store.Alert) error {
	logging.Info("contradiction alert",
		"identity", a.Identity,
		"kind", a.Kind,
		"topic", a.Topic,
		"severity", a.Severity,
		"stmt1", a.Stmt1Text,
		"stmt2", a.Stmt2Text)
	return nil
}
