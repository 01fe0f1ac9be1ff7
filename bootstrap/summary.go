package bootstrap

import (
	"context"
	"time"

	"github.com/kbukum/bulkflow/logger"
)

// logStartup writes one line per component with its health and a final
// line with the startup duration.
func (a *App[C]) logStartup(ctx context.Context, took time.Duration) {
	for _, h := range a.Components.HealthAll(ctx) {
		fields := logger.Fields(logger.FieldComponent, h.Name, logger.FieldStatus, string(h.Status))
		if h.Message != "" {
			fields["message"] = h.Message
		}
		a.Logger.Debug("component ready", fields)
	}
	a.Logger.Info("started", logger.MergeWithDuration(
		logger.Fields("name", a.Name, logger.FieldCount, len(a.Components.All())), took))
}
